package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/impact-engine/internal/db"
	"github.com/sells-group/impact-engine/internal/model"
	"github.com/sells-group/impact-engine/internal/waterfall"
)

var (
	productsUpsert = db.UpsertConfig{
		Table:        "products",
		Columns:      []string{"id", "org_id", "name", "system_boundary", "region"},
		ConflictKeys: []string{"id"},
	}
	materialsUpsert = db.UpsertConfig{
		Table: "materials",
		Columns: []string{"id", "product_id", "position", "name", "kind", "category", "quantity", "unit",
			"origin", "stage", "supplier_product_id", "process_id", "transport", "eol_category"},
		ConflictKeys: []string{"id"},
	}
	suppliersUpsert = db.UpsertConfig{
		Table:        "supplier_products",
		Columns:      []string{"scope", "org_id", "product_id", "name", "source", "data_quality", "confidence_override", "factors"},
		ConflictKeys: []string{"scope", "org_id", "product_id"},
	}
	mappingsUpsert = db.UpsertConfig{
		Table:        "regional_mappings",
		Columns:      []string{"name_key", "material_name", "factor_name", "source", "climate", "proxy_id"},
		ConflictKeys: []string{"name_key"},
	}
	proxiesUpsert = db.UpsertConfig{
		Table:        "process_proxies",
		Columns:      []string{"id", "name", "source", "factors"},
		ConflictKeys: []string{"id"},
	}
	stagingUpsert = db.UpsertConfig{
		Table:        "staging_factors",
		Columns:      []string{"name_key", "name", "source", "factors"},
		ConflictKeys: []string{"name_key"},
	}
	proxyFactorsUpsert = db.UpsertConfig{
		Table:        "proxy_factors",
		Columns:      []string{"name_key", "name", "source", "factors"},
		ConflictKeys: []string{"name_key"},
	}
)

var utilityColumns = []string{"id", "facility_id", "utility_type", "quantity", "unit", "period_start", "period_end"}

// Seed loads fixtures. Reference rows are upserted. Utility records are
// replaced by id and appended with COPY.
func (s *PostgresStore) Seed(ctx context.Context, f *Fixtures) error {
	if f == nil {
		return nil
	}
	if err := f.Validate(); err != nil {
		return err
	}

	batches, err := seedBatches(f)
	if err != nil {
		return err
	}
	for _, b := range batches {
		n, err := db.BulkUpsert(ctx, s.pool, b.cfg, b.rows)
		if err != nil {
			return eris.Wrapf(err, "postgres: seed %s", b.cfg.Table)
		}
		zap.L().Debug("seeded table", zap.String("table", b.cfg.Table), zap.Int64("rows", n))
	}

	if len(f.Utilities) == 0 {
		return nil
	}
	ids := make([]string, len(f.Utilities))
	rows := make([][]any, len(f.Utilities))
	for i, u := range f.Utilities {
		ids[i] = u.ID
		rows[i] = []any{u.ID, u.FacilityID, string(u.Type), u.Quantity, u.Unit, u.PeriodStart.UTC(), u.PeriodEnd.UTC()}
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM utility_records WHERE id = ANY($1)`, ids); err != nil {
		return eris.Wrap(err, "postgres: seed utility_records: delete")
	}
	n, err := db.CopyFrom(ctx, s.pool, "utility_records", utilityColumns, rows)
	if err != nil {
		return eris.Wrap(err, "postgres: seed utility_records")
	}
	zap.L().Debug("seeded table", zap.String("table", "utility_records"), zap.Int64("rows", n))
	return nil
}

type seedBatch struct {
	cfg  db.UpsertConfig
	rows [][]any
}

// seedBatches converts fixtures into upsert rows in dependency order.
func seedBatches(f *Fixtures) ([]seedBatch, error) {
	var out []seedBatch
	add := func(cfg db.UpsertConfig, rows [][]any) {
		if len(rows) > 0 {
			out = append(out, seedBatch{cfg: cfg, rows: rows})
		}
	}

	var products [][]any
	for _, p := range f.Products {
		products = append(products, []any{p.ID, p.OrgID, p.Name, string(boundaryOrDefault(p.Boundary)), p.Region})
	}
	add(productsUpsert, products)

	var materials [][]any
	for i, m := range f.Materials {
		var transport []byte
		if m.Transport != nil {
			var err error
			if transport, err = encode(m.Transport); err != nil {
				return nil, err
			}
		}
		kind := m.Kind
		if kind == "" {
			kind = model.MaterialKindIngredient
		}
		materials = append(materials, []any{
			m.ID, m.ProductID, i, m.Name, string(kind), string(m.Category), m.Quantity, m.Unit,
			m.Origin, string(m.Stage), m.SupplierProductID, m.ProcessID, transport, m.EoLCategory,
		})
	}
	add(materialsUpsert, materials)

	var suppliers [][]any
	for _, sp := range f.Suppliers {
		factors, err := encode(waterfall.FactorSetFromMap(sp.Factors))
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, []any{
			sp.Scope, sp.OrgID, sp.ProductID, sp.Name, sp.Source, sp.DataQuality, sp.ConfidenceOverride, factors,
		})
	}
	add(suppliersUpsert, suppliers)

	var mappings [][]any
	for _, m := range f.Mappings {
		mappings = append(mappings, []any{model.NameKey(m.MaterialName), m.MaterialName, m.FactorName, m.Source, m.Climate, m.ProxyID})
	}
	add(mappingsUpsert, mappings)

	var proxies [][]any
	for _, p := range f.Proxies {
		factors, err := encode(waterfall.FactorSetFromMap(p.Factors))
		if err != nil {
			return nil, err
		}
		proxies = append(proxies, []any{p.ID, p.Name, p.Source, factors})
	}
	add(proxiesUpsert, proxies)

	for _, tbl := range []struct {
		cfg  db.UpsertConfig
		rows []FactorRow
	}{
		{stagingUpsert, f.StagingFactors},
		{proxyFactorsUpsert, f.ProxyFactors},
	} {
		var rows [][]any
		for _, r := range tbl.rows {
			factors, err := encode(r.factorSet())
			if err != nil {
				return nil, err
			}
			rows = append(rows, []any{model.NameKey(r.Name), r.Name, r.Source, factors})
		}
		add(tbl.cfg, rows)
	}
	return out, nil
}

func boundaryOrDefault(b model.SystemBoundary) model.SystemBoundary {
	if b == "" {
		return model.BoundaryCradleToGate
	}
	return b
}
