package store

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/impact-engine/internal/model"
	"github.com/sells-group/impact-engine/internal/waterfall"
)

// FactorRow is a name-matched factor fixture. Factors are keyed by canonical
// impact category name.
type FactorRow struct {
	Name    string             `yaml:"name"`
	Source  string             `yaml:"source"`
	Factors map[string]float64 `yaml:"factors"`
}

// SupplierRow is a supplier catalogue fixture.
type SupplierRow struct {
	Scope              string             `yaml:"scope"` // org, platform or footprint
	OrgID              string             `yaml:"org_id"`
	ProductID          string             `yaml:"product_id"`
	Name               string             `yaml:"name"`
	Source             string             `yaml:"source"`
	DataQuality        int                `yaml:"data_quality"`
	ConfidenceOverride *float64           `yaml:"confidence_override"`
	Factors            map[string]float64 `yaml:"factors"`
}

// MappingRow is a regional mapping fixture.
type MappingRow struct {
	MaterialName string  `yaml:"material_name"`
	FactorName   string  `yaml:"factor_name"`
	Source       string  `yaml:"source"`
	Climate      float64 `yaml:"climate"`
	ProxyID      string  `yaml:"proxy_id"`
}

// ProxyRow is a process proxy fixture.
type ProxyRow struct {
	ID      string             `yaml:"id"`
	Name    string             `yaml:"name"`
	Source  string             `yaml:"source"`
	Factors map[string]float64 `yaml:"factors"`
}

// Fixtures is the seed file layout.
type Fixtures struct {
	Products       []model.Product       `yaml:"products"`
	Materials      []model.Material      `yaml:"materials"`
	StagingFactors []FactorRow           `yaml:"staging_factors"`
	ProxyFactors   []FactorRow           `yaml:"proxy_factors"`
	Suppliers      []SupplierRow         `yaml:"suppliers"`
	Mappings       []MappingRow          `yaml:"regional_mappings"`
	Proxies        []ProxyRow            `yaml:"process_proxies"`
	Utilities      []model.UtilityRecord `yaml:"utility_records"`
}

// LoadFixtures reads a YAML seed file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: read fixtures %s", path)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "store: parse fixtures")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks identifiers that key the seeded tables.
func (f *Fixtures) Validate() error {
	for i, p := range f.Products {
		if p.ID == "" {
			return eris.Errorf("store: product %d has no id", i)
		}
	}
	for i, m := range f.Materials {
		if m.ID == "" || m.ProductID == "" {
			return eris.Errorf("store: material %d needs id and product_id", i)
		}
	}
	for i, s := range f.Suppliers {
		switch s.Scope {
		case SupplierScopeOrg:
			if s.OrgID == "" {
				return eris.Errorf("store: supplier %d: org scope needs org_id", i)
			}
		case SupplierScopePlatform, SupplierScopeFootprint:
		default:
			return eris.Errorf("store: supplier %d: unknown scope %q", i, s.Scope)
		}
	}
	for i, u := range f.Utilities {
		if u.ID == "" || u.FacilityID == "" {
			return eris.Errorf("store: utility record %d needs id and facility_id", i)
		}
	}
	return nil
}

func (r FactorRow) factorSet() waterfall.FactorSet {
	return waterfall.FactorSetFromMap(r.Factors)
}
