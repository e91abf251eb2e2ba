package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/impact-engine/internal/db"
	"github.com/sells-group/impact-engine/internal/livecalc"
	"github.com/sells-group/impact-engine/internal/model"
	"github.com/sells-group/impact-engine/internal/waterfall"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS products (
	id              TEXT PRIMARY KEY,
	org_id          TEXT NOT NULL DEFAULT '',
	name            TEXT NOT NULL,
	system_boundary TEXT NOT NULL DEFAULT 'cradle_to_gate',
	region          TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS materials (
	id                  TEXT PRIMARY KEY,
	product_id          TEXT NOT NULL REFERENCES products(id),
	position            INTEGER NOT NULL DEFAULT 0,
	name                TEXT NOT NULL,
	kind                TEXT NOT NULL DEFAULT 'ingredient',
	category            TEXT NOT NULL DEFAULT '',
	quantity            DOUBLE PRECISION NOT NULL,
	unit                TEXT NOT NULL,
	origin              TEXT NOT NULL DEFAULT '',
	stage               TEXT NOT NULL DEFAULT '',
	supplier_product_id TEXT NOT NULL DEFAULT '',
	process_id          TEXT NOT NULL DEFAULT '',
	transport           JSONB,
	eol_category        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_materials_product ON materials(product_id, position);

CREATE TABLE IF NOT EXISTS supplier_products (
	scope               TEXT NOT NULL,
	org_id              TEXT NOT NULL DEFAULT '',
	product_id          TEXT NOT NULL,
	name                TEXT NOT NULL DEFAULT '',
	source              TEXT NOT NULL DEFAULT '',
	data_quality        INTEGER NOT NULL DEFAULT 0,
	confidence_override DOUBLE PRECISION,
	factors             JSONB NOT NULL,
	PRIMARY KEY (scope, org_id, product_id)
);

CREATE TABLE IF NOT EXISTS regional_mappings (
	name_key      TEXT PRIMARY KEY,
	material_name TEXT NOT NULL,
	factor_name   TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT '',
	climate       DOUBLE PRECISION NOT NULL DEFAULT 0,
	proxy_id      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS process_proxies (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL DEFAULT '',
	source  TEXT NOT NULL DEFAULT '',
	factors JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS staging_factors (
	name_key TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	source   TEXT NOT NULL DEFAULT '',
	factors  JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS proxy_factors (
	name_key TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	source   TEXT NOT NULL DEFAULT '',
	factors  JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS utility_records (
	id           TEXT PRIMARY KEY,
	facility_id  TEXT NOT NULL,
	utility_type TEXT NOT NULL,
	quantity     DOUBLE PRECISION NOT NULL,
	unit         TEXT NOT NULL DEFAULT '',
	period_start TIMESTAMPTZ NOT NULL,
	period_end   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_utility_records_facility ON utility_records(facility_id, period_start);

CREATE TABLE IF NOT EXISTS livecalc_cache (
	org_id     TEXT NOT NULL,
	process_id TEXT NOT NULL,
	result     JSONB NOT NULL,
	stored_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (org_id, process_id)
);

CREATE TABLE IF NOT EXISTS calculation_runs (
	id           TEXT PRIMARY KEY,
	product_id   TEXT NOT NULL,
	org_id       TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'running',
	warnings     JSONB NOT NULL DEFAULT '[]',
	error        TEXT NOT NULL DEFAULT '',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_calculation_runs_product ON calculation_runs(product_id, started_at DESC);

CREATE TABLE IF NOT EXISTS resolved_impacts (
	product_id  TEXT NOT NULL,
	material_id TEXT NOT NULL,
	run_id      TEXT NOT NULL,
	record      JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (product_id, material_id)
);

CREATE TABLE IF NOT EXISTS facility_allocations (
	product_id   TEXT NOT NULL,
	facility_id  TEXT NOT NULL,
	period_start TIMESTAMPTZ NOT NULL,
	period_end   TIMESTAMPTZ NOT NULL,
	run_id       TEXT NOT NULL,
	record       JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (product_id, facility_id, period_start, period_end)
);

CREATE INDEX IF NOT EXISTS idx_facility_allocations_run ON facility_allocations(run_id);

CREATE TABLE IF NOT EXISTS aggregated_impacts (
	product_id     TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL,
	aggregate      JSONB NOT NULL,
	interpretation JSONB NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Upsert layouts shared by SaveCalculation and Seed.
var (
	resolvedImpactsUpsert = db.UpsertConfig{
		Table:        "resolved_impacts",
		Columns:      []string{"product_id", "material_id", "run_id", "record", "updated_at"},
		ConflictKeys: []string{"product_id", "material_id"},
	}
	allocationsUpsert = db.UpsertConfig{
		Table:        "facility_allocations",
		Columns:      []string{"product_id", "facility_id", "period_start", "period_end", "run_id", "record", "updated_at"},
		ConflictKeys: []string{"product_id", "facility_id", "period_start", "period_end"},
	}
)

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Products ---

func (s *PostgresStore) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	var p model.Product
	err := s.pool.QueryRow(ctx,
		`SELECT id, org_id, name, system_boundary, region FROM products WHERE id = $1`,
		productID,
	).Scan(&p.ID, &p.OrgID, &p.Name, &p.Boundary, &p.Region)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "product", ID: productID}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get product %s", productID)
	}
	return &p, nil
}

func (s *PostgresStore) ListMaterials(ctx context.Context, productID string) ([]model.Material, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, product_id, name, kind, category, quantity, unit, origin, stage,
		        supplier_product_id, process_id, transport, eol_category
		 FROM materials WHERE product_id = $1 ORDER BY position, id`,
		productID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list materials %s", productID)
	}
	defer rows.Close()

	var out []model.Material
	for rows.Next() {
		var m model.Material
		var transport []byte
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Name, &m.Kind, &m.Category, &m.Quantity, &m.Unit,
			&m.Origin, &m.Stage, &m.SupplierProductID, &m.ProcessID, &transport, &m.EoLCategory); err != nil {
			return nil, eris.Wrap(err, "postgres: scan material")
		}
		if len(transport) > 0 {
			m.Transport = &model.TransportLeg{}
			if err := decode(transport, m.Transport); err != nil {
				return nil, err
			}
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list materials iterate")
}

// --- Waterfall sources ---

func (s *PostgresStore) OrgSupplierProduct(ctx context.Context, orgID, productID string) (*waterfall.SupplierRecord, error) {
	return s.supplier(ctx, SupplierScopeOrg, orgID, productID)
}

func (s *PostgresStore) PlatformSupplierProduct(ctx context.Context, productID string) (*waterfall.SupplierRecord, error) {
	return s.supplier(ctx, SupplierScopePlatform, "", productID)
}

func (s *PostgresStore) SupplierFootprint(ctx context.Context, productID string) (*waterfall.SupplierRecord, error) {
	return s.supplier(ctx, SupplierScopeFootprint, "", productID)
}

func (s *PostgresStore) supplier(ctx context.Context, scope, orgID, productID string) (*waterfall.SupplierRecord, error) {
	var rec waterfall.SupplierRecord
	var factors []byte
	err := s.pool.QueryRow(ctx,
		`SELECT product_id, name, source, data_quality, confidence_override, factors
		 FROM supplier_products WHERE scope = $1 AND org_id = $2 AND product_id = $3`,
		scope, orgID, productID,
	).Scan(&rec.ProductID, &rec.Name, &rec.Source, &rec.DataQuality, &rec.ConfidenceOverride, &factors)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s supplier product %s", scope, productID)
	}
	if rec.Factors, err = decodeFactors(factors); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PostgresStore) RegionalMapping(ctx context.Context, materialName string) (*waterfall.RegionalMapping, error) {
	var m waterfall.RegionalMapping
	err := s.pool.QueryRow(ctx,
		`SELECT material_name, factor_name, source, climate, proxy_id FROM regional_mappings WHERE name_key = $1`,
		model.NameKey(materialName),
	).Scan(&m.MaterialName, &m.FactorName, &m.Source, &m.Climate, &m.ProxyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get regional mapping %s", materialName)
	}
	return &m, nil
}

func (s *PostgresStore) ProcessProxy(ctx context.Context, proxyID string) (*waterfall.ProcessProxy, error) {
	var p waterfall.ProcessProxy
	var factors []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, source, factors FROM process_proxies WHERE id = $1`,
		proxyID,
	).Scan(&p.ID, &p.Name, &p.Source, &factors)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get process proxy %s", proxyID)
	}
	if p.Factors, err = decodeFactors(factors); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) StagingFactor(ctx context.Context, name string) (*waterfall.StagingFactor, error) {
	n, src, fs, err := s.namedFactor(ctx, "staging_factors", name)
	if err != nil || fs == nil {
		return nil, err
	}
	return &waterfall.StagingFactor{Name: n, Source: src, Factors: *fs}, nil
}

func (s *PostgresStore) ProxyFactor(ctx context.Context, name string) (*waterfall.ProxyFactor, error) {
	n, src, fs, err := s.namedFactor(ctx, "proxy_factors", name)
	if err != nil || fs == nil {
		return nil, err
	}
	return &waterfall.ProxyFactor{Name: n, Source: src, Factors: *fs}, nil
}

// namedFactor reads a name-keyed factor row; table is one of two constants.
func (s *PostgresStore) namedFactor(ctx context.Context, table, name string) (string, string, *waterfall.FactorSet, error) {
	var n, src string
	var factors []byte
	err := s.pool.QueryRow(ctx,
		`SELECT name, source, factors FROM `+table+` WHERE name_key = $1`,
		model.NameKey(name),
	).Scan(&n, &src, &factors)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", nil, nil
	}
	if err != nil {
		return "", "", nil, eris.Wrapf(err, "postgres: get %s %s", table, name)
	}
	fs, err := decodeFactors(factors)
	if err != nil {
		return "", "", nil, err
	}
	return n, src, &fs, nil
}

// --- Facility utilities ---

func (s *PostgresStore) UtilityRecords(ctx context.Context, facilityID string, period model.ReportingPeriod) ([]model.UtilityRecord, error) {
	query := `SELECT id, facility_id, utility_type, quantity, unit, period_start, period_end
		FROM utility_records WHERE facility_id = $1`
	args := []any{facilityID}
	if !period.End.IsZero() {
		query += ` AND period_start >= $2 AND period_start < $3`
		args = append(args, period.Start.UTC(), period.End.UTC())
	}
	query += ` ORDER BY period_start, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: utility records %s", facilityID)
	}
	defer rows.Close()

	var out []model.UtilityRecord
	for rows.Next() {
		var r model.UtilityRecord
		if err := rows.Scan(&r.ID, &r.FacilityID, &r.Type, &r.Quantity, &r.Unit, &r.PeriodStart, &r.PeriodEnd); err != nil {
			return nil, eris.Wrap(err, "postgres: scan utility record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: utility records iterate")
}

// --- Live calculation cache ---

func (s *PostgresStore) GetLiveCalcCache(ctx context.Context, key livecalc.Key) (*livecalc.Entry, error) {
	var e livecalc.Entry
	var result []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result, stored_at FROM livecalc_cache WHERE org_id = $1 AND process_id = $2`,
		key.OrgID, key.ProcessID,
	).Scan(&result, &e.StoredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get livecalc cache %s", key)
	}
	if err := decode(result, &e.Result); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) PutLiveCalcCache(ctx context.Context, key livecalc.Key, entry livecalc.Entry) error {
	result, err := encode(entry.Result)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO livecalc_cache (org_id, process_id, result, stored_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (org_id, process_id) DO UPDATE SET result = EXCLUDED.result, stored_at = EXCLUDED.stored_at`,
		key.OrgID, key.ProcessID, result, entry.StoredAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: put livecalc cache %s", key)
}

// --- Runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, run model.CalculationRun) error {
	warnings, err := encode(nonNilWarnings(run.Warnings))
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO calculation_runs (id, product_id, org_id, status, warnings, started_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.ProductID, run.OrgID, string(run.Status), warnings, run.StartedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, warnings []model.Warning) error {
	return s.finishRun(ctx, runID, model.RunStatusComplete, "", warnings)
}

func (s *PostgresStore) FailRun(ctx context.Context, runID, reason string, warnings []model.Warning) error {
	return s.finishRun(ctx, runID, model.RunStatusFailed, reason, warnings)
}

func (s *PostgresStore) finishRun(ctx context.Context, runID string, status model.RunStatus, reason string, warnings []model.Warning) error {
	w, err := encode(nonNilWarnings(warnings))
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE calculation_runs SET status = $1, error = $2, warnings = $3, completed_at = $4 WHERE id = $5`,
		string(status), reason, w, s.now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "run", ID: runID}
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.CalculationRun, error) {
	var r model.CalculationRun
	var warnings []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, product_id, org_id, status, warnings, error, started_at, completed_at FROM calculation_runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.ProductID, &r.OrgID, &r.Status, &warnings, &r.Error, &r.StartedAt, &r.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "run", ID: runID}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if err := decode(warnings, &r.Warnings); err != nil {
		return nil, err
	}
	return &r, nil
}

// --- Calculation output ---

// SaveCalculation writes a run's impacts, allocations and aggregate in one
// transaction. On error nothing is written.
func (s *PostgresStore) SaveCalculation(ctx context.Context, out model.RunOutput) error {
	now := s.now().UTC()
	impactRows, err := resolvedImpactRows(out.RunID, out.ProductID, out.Impacts, now)
	if err != nil {
		return err
	}
	allocRows, err := allocationRows(out.RunID, out.ProductID, out.Allocations, now)
	if err != nil {
		return err
	}
	aggArgs, err := aggregateArgs(out.RunID, out.Aggregated, out.Interpretation, now)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "postgres: save calculation %s: begin tx", out.RunID)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := db.BulkUpsertTx(ctx, tx, resolvedImpactsUpsert, impactRows); err != nil {
		return eris.Wrapf(err, "postgres: save calculation %s: resolved impacts", out.RunID)
	}
	if _, err := db.BulkUpsertTx(ctx, tx, allocationsUpsert, allocRows); err != nil {
		return eris.Wrapf(err, "postgres: save calculation %s: allocations", out.RunID)
	}
	if _, err := tx.Exec(ctx, aggregateUpsertSQL, aggArgs...); err != nil {
		return eris.Wrapf(err, "postgres: save calculation %s: aggregate", out.RunID)
	}
	return eris.Wrapf(tx.Commit(ctx), "postgres: save calculation %s: commit", out.RunID)
}

func resolvedImpactRows(runID, productID string, impacts []model.ResolvedImpact, now time.Time) ([][]any, error) {
	rows := make([][]any, 0, len(impacts))
	for _, ri := range impacts {
		record, err := encode(ri)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []any{productID, ri.MaterialID, runID, record, now})
	}
	return rows, nil
}

func (s *PostgresStore) ListResolvedImpacts(ctx context.Context, productID string) ([]model.ResolvedImpact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM resolved_impacts WHERE product_id = $1 ORDER BY material_id`,
		productID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list resolved impacts %s", productID)
	}
	defer rows.Close()

	var out []model.ResolvedImpact
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "postgres: scan resolved impact")
		}
		var ri model.ResolvedImpact
		if err := decode(record, &ri); err != nil {
			return nil, err
		}
		out = append(out, ri)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list resolved impacts iterate")
}

func allocationRows(runID, productID string, allocs []model.AllocationResult, now time.Time) ([][]any, error) {
	rows := make([][]any, 0, len(allocs))
	for _, a := range allocs {
		record, err := encode(a)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []any{
			productID, a.Allocation.FacilityID,
			a.Allocation.Period.Start.UTC(), a.Allocation.Period.End.UTC(),
			runID, record, now,
		})
	}
	return rows, nil
}

// LatestAllocations returns the allocations written by the most recent run
// that saved any for the product.
func (s *PostgresStore) LatestAllocations(ctx context.Context, productID string) ([]model.AllocationResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT record FROM facility_allocations
		 WHERE product_id = $1 AND run_id = (
		   SELECT run_id FROM facility_allocations WHERE product_id = $1 ORDER BY updated_at DESC LIMIT 1
		 )
		 ORDER BY facility_id, period_start`,
		productID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest allocations %s", productID)
	}
	defer rows.Close()

	var out []model.AllocationResult
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "postgres: scan allocation")
		}
		var a model.AllocationResult
		if err := decode(record, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: latest allocations iterate")
}

const aggregateUpsertSQL = `INSERT INTO aggregated_impacts (product_id, run_id, aggregate, interpretation, updated_at) VALUES ($1, $2, $3, $4, $5)
	 ON CONFLICT (product_id) DO UPDATE SET run_id = EXCLUDED.run_id, aggregate = EXCLUDED.aggregate,
	   interpretation = EXCLUDED.interpretation, updated_at = EXCLUDED.updated_at`

func aggregateArgs(runID string, agg model.AggregatedImpacts, interp model.InterpretationResult, now time.Time) ([]any, error) {
	aggJSON, err := encode(agg)
	if err != nil {
		return nil, err
	}
	interpJSON, err := encode(interp)
	if err != nil {
		return nil, err
	}
	return []any{agg.ProductID, runID, aggJSON, interpJSON, now}, nil
}

func (s *PostgresStore) GetAggregate(ctx context.Context, productID string) (*AggregateRecord, error) {
	rec := AggregateRecord{ProductID: productID}
	var aggJSON, interpJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT run_id, aggregate, interpretation, updated_at FROM aggregated_impacts WHERE product_id = $1`,
		productID,
	).Scan(&rec.RunID, &aggJSON, &interpJSON, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "aggregate", ID: productID}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get aggregate %s", productID)
	}
	if err := decode(aggJSON, &rec.Aggregated); err != nil {
		return nil, err
	}
	if err := decode(interpJSON, &rec.Interpretation); err != nil {
		return nil, err
	}
	return &rec, nil
}

func nonNilWarnings(w []model.Warning) []model.Warning {
	if w == nil {
		return []model.Warning{}
	}
	return w
}
