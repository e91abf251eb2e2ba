package waterfall

import "context"

// Lookups return (nil, nil) when no row exists. A non-nil error means the
// source could not be queried.

// SupplierCatalogue reads verified supplier product data.
type SupplierCatalogue interface {
	// OrgSupplierProduct reads from the organization-scoped catalogue.
	OrgSupplierProduct(ctx context.Context, orgID, productID string) (*SupplierRecord, error)
	// PlatformSupplierProduct reads from the platform-wide shared catalogue.
	PlatformSupplierProduct(ctx context.Context, productID string) (*SupplierRecord, error)
	// SupplierFootprint reads a completed footprint of the supplier's own product.
	SupplierFootprint(ctx context.Context, productID string) (*SupplierRecord, error)
}

// MappingTable links material names to regional factors and process proxies.
type MappingTable interface {
	RegionalMapping(ctx context.Context, materialName string) (*RegionalMapping, error)
	ProcessProxy(ctx context.Context, proxyID string) (*ProcessProxy, error)
}

// LiveCalculator returns per-unit results from the live calculation service.
type LiveCalculator interface {
	Calculate(ctx context.Context, orgID, processID string) (*LiveResult, error)
}

// FactorTable reads name-matched per-kg factors.
type FactorTable interface {
	StagingFactor(ctx context.Context, name string) (*StagingFactor, error)
	ProxyFactor(ctx context.Context, name string) (*ProxyFactor, error)
}

// Sources bundles the collaborators consulted by the resolver. A nil member
// disables the tiers that depend on it.
type Sources struct {
	Suppliers SupplierCatalogue
	Mappings  MappingTable
	Live      LiveCalculator
	Factors   FactorTable
}
