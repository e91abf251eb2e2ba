package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/impact-engine/internal/livecalc"
	"github.com/sells-group/impact-engine/internal/model"
	"github.com/sells-group/impact-engine/internal/waterfall"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
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
	quantity            REAL NOT NULL,
	unit                TEXT NOT NULL,
	origin              TEXT NOT NULL DEFAULT '',
	stage               TEXT NOT NULL DEFAULT '',
	supplier_product_id TEXT NOT NULL DEFAULT '',
	process_id          TEXT NOT NULL DEFAULT '',
	transport           TEXT,
	eol_category        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS supplier_products (
	scope               TEXT NOT NULL,
	org_id              TEXT NOT NULL DEFAULT '',
	product_id          TEXT NOT NULL,
	name                TEXT NOT NULL DEFAULT '',
	source              TEXT NOT NULL DEFAULT '',
	data_quality        INTEGER NOT NULL DEFAULT 0,
	confidence_override REAL,
	factors             TEXT NOT NULL,
	PRIMARY KEY (scope, org_id, product_id)
);

CREATE TABLE IF NOT EXISTS regional_mappings (
	name_key      TEXT PRIMARY KEY,
	material_name TEXT NOT NULL,
	factor_name   TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT '',
	climate       REAL NOT NULL DEFAULT 0,
	proxy_id      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS process_proxies (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL DEFAULT '',
	source  TEXT NOT NULL DEFAULT '',
	factors TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS staging_factors (
	name_key TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	source   TEXT NOT NULL DEFAULT '',
	factors  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS proxy_factors (
	name_key TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	source   TEXT NOT NULL DEFAULT '',
	factors  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS utility_records (
	id           TEXT PRIMARY KEY,
	facility_id  TEXT NOT NULL,
	utility_type TEXT NOT NULL,
	quantity     REAL NOT NULL,
	unit         TEXT NOT NULL DEFAULT '',
	period_start TEXT NOT NULL,
	period_end   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS livecalc_cache (
	org_id     TEXT NOT NULL,
	process_id TEXT NOT NULL,
	result     TEXT NOT NULL,
	stored_at  TEXT NOT NULL,
	PRIMARY KEY (org_id, process_id)
);

CREATE TABLE IF NOT EXISTS calculation_runs (
	id           TEXT PRIMARY KEY,
	product_id   TEXT NOT NULL,
	org_id       TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'running',
	warnings     TEXT NOT NULL DEFAULT '[]',
	error        TEXT NOT NULL DEFAULT '',
	started_at   TEXT NOT NULL,
	completed_at TEXT
);

CREATE TABLE IF NOT EXISTS resolved_impacts (
	product_id  TEXT NOT NULL,
	material_id TEXT NOT NULL,
	run_id      TEXT NOT NULL,
	record      TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	PRIMARY KEY (product_id, material_id)
);

CREATE TABLE IF NOT EXISTS facility_allocations (
	product_id   TEXT NOT NULL,
	facility_id  TEXT NOT NULL,
	period_start TEXT NOT NULL,
	period_end   TEXT NOT NULL,
	run_id       TEXT NOT NULL,
	record       TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	PRIMARY KEY (product_id, facility_id, period_start, period_end)
);

CREATE TABLE IF NOT EXISTS aggregated_impacts (
	product_id     TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL,
	aggregate      TEXT NOT NULL,
	interpretation TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_materials_product ON materials(product_id, position);
CREATE INDEX IF NOT EXISTS idx_utility_records_facility ON utility_records(facility_id, period_start);
CREATE INDEX IF NOT EXISTS idx_calculation_runs_product ON calculation_runs(product_id, started_at);
CREATE INDEX IF NOT EXISTS idx_facility_allocations_run ON facility_allocations(run_id);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Products ---

func (s *SQLiteStore) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	var p model.Product
	err := s.db.QueryRowContext(ctx,
		`SELECT id, org_id, name, system_boundary, region FROM products WHERE id = ?`,
		productID,
	).Scan(&p.ID, &p.OrgID, &p.Name, &p.Boundary, &p.Region)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "product", ID: productID}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get product %s", productID)
	}
	return &p, nil
}

func (s *SQLiteStore) ListMaterials(ctx context.Context, productID string) ([]model.Material, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, name, kind, category, quantity, unit, origin, stage,
		        supplier_product_id, process_id, transport, eol_category
		 FROM materials WHERE product_id = ? ORDER BY position, id`,
		productID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list materials %s", productID)
	}
	defer rows.Close()

	var out []model.Material
	for rows.Next() {
		var m model.Material
		var transport sql.NullString
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Name, &m.Kind, &m.Category, &m.Quantity, &m.Unit,
			&m.Origin, &m.Stage, &m.SupplierProductID, &m.ProcessID, &transport, &m.EoLCategory); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan material")
		}
		if transport.Valid && transport.String != "" {
			m.Transport = &model.TransportLeg{}
			if err := decode([]byte(transport.String), m.Transport); err != nil {
				return nil, err
			}
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list materials iterate")
}

// --- Waterfall sources ---

func (s *SQLiteStore) OrgSupplierProduct(ctx context.Context, orgID, productID string) (*waterfall.SupplierRecord, error) {
	return s.supplier(ctx, SupplierScopeOrg, orgID, productID)
}

func (s *SQLiteStore) PlatformSupplierProduct(ctx context.Context, productID string) (*waterfall.SupplierRecord, error) {
	return s.supplier(ctx, SupplierScopePlatform, "", productID)
}

func (s *SQLiteStore) SupplierFootprint(ctx context.Context, productID string) (*waterfall.SupplierRecord, error) {
	return s.supplier(ctx, SupplierScopeFootprint, "", productID)
}

func (s *SQLiteStore) supplier(ctx context.Context, scope, orgID, productID string) (*waterfall.SupplierRecord, error) {
	var rec waterfall.SupplierRecord
	var override sql.NullFloat64
	var factors string
	err := s.db.QueryRowContext(ctx,
		`SELECT product_id, name, source, data_quality, confidence_override, factors
		 FROM supplier_products WHERE scope = ? AND org_id = ? AND product_id = ?`,
		scope, orgID, productID,
	).Scan(&rec.ProductID, &rec.Name, &rec.Source, &rec.DataQuality, &override, &factors)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s supplier product %s", scope, productID)
	}
	if override.Valid {
		rec.ConfidenceOverride = waterfall.Float(override.Float64)
	}
	if rec.Factors, err = decodeFactors([]byte(factors)); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) RegionalMapping(ctx context.Context, materialName string) (*waterfall.RegionalMapping, error) {
	var m waterfall.RegionalMapping
	err := s.db.QueryRowContext(ctx,
		`SELECT material_name, factor_name, source, climate, proxy_id FROM regional_mappings WHERE name_key = ?`,
		model.NameKey(materialName),
	).Scan(&m.MaterialName, &m.FactorName, &m.Source, &m.Climate, &m.ProxyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get regional mapping %s", materialName)
	}
	return &m, nil
}

func (s *SQLiteStore) ProcessProxy(ctx context.Context, proxyID string) (*waterfall.ProcessProxy, error) {
	var p waterfall.ProcessProxy
	var factors string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, source, factors FROM process_proxies WHERE id = ?`,
		proxyID,
	).Scan(&p.ID, &p.Name, &p.Source, &factors)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get process proxy %s", proxyID)
	}
	if p.Factors, err = decodeFactors([]byte(factors)); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) StagingFactor(ctx context.Context, name string) (*waterfall.StagingFactor, error) {
	n, src, fs, err := s.namedFactor(ctx, "staging_factors", name)
	if err != nil || fs == nil {
		return nil, err
	}
	return &waterfall.StagingFactor{Name: n, Source: src, Factors: *fs}, nil
}

func (s *SQLiteStore) ProxyFactor(ctx context.Context, name string) (*waterfall.ProxyFactor, error) {
	n, src, fs, err := s.namedFactor(ctx, "proxy_factors", name)
	if err != nil || fs == nil {
		return nil, err
	}
	return &waterfall.ProxyFactor{Name: n, Source: src, Factors: *fs}, nil
}

func (s *SQLiteStore) namedFactor(ctx context.Context, table, name string) (string, string, *waterfall.FactorSet, error) {
	var n, src, factors string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, source, factors FROM `+table+` WHERE name_key = ?`,
		model.NameKey(name),
	).Scan(&n, &src, &factors)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil, nil
	}
	if err != nil {
		return "", "", nil, eris.Wrapf(err, "sqlite: get %s %s", table, name)
	}
	fs, err := decodeFactors([]byte(factors))
	if err != nil {
		return "", "", nil, err
	}
	return n, src, &fs, nil
}

// --- Facility utilities ---

func (s *SQLiteStore) UtilityRecords(ctx context.Context, facilityID string, period model.ReportingPeriod) ([]model.UtilityRecord, error) {
	query := `SELECT id, facility_id, utility_type, quantity, unit, period_start, period_end
		FROM utility_records WHERE facility_id = ?`
	args := []any{facilityID}
	if !period.End.IsZero() {
		query += ` AND period_start >= ? AND period_start < ?`
		args = append(args, formatTime(period.Start), formatTime(period.End))
	}
	query += ` ORDER BY period_start, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: utility records %s", facilityID)
	}
	defer rows.Close()

	var out []model.UtilityRecord
	for rows.Next() {
		var r model.UtilityRecord
		var start, end string
		if err := rows.Scan(&r.ID, &r.FacilityID, &r.Type, &r.Quantity, &r.Unit, &start, &end); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan utility record")
		}
		if r.PeriodStart, err = parseTime(start); err != nil {
			return nil, err
		}
		if r.PeriodEnd, err = parseTime(end); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: utility records iterate")
}

// --- Live calculation cache ---

func (s *SQLiteStore) GetLiveCalcCache(ctx context.Context, key livecalc.Key) (*livecalc.Entry, error) {
	var result, storedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT result, stored_at FROM livecalc_cache WHERE org_id = ? AND process_id = ?`,
		key.OrgID, key.ProcessID,
	).Scan(&result, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get livecalc cache %s", key)
	}
	var e livecalc.Entry
	if e.StoredAt, err = parseTime(storedAt); err != nil {
		return nil, err
	}
	if err := decode([]byte(result), &e.Result); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStore) PutLiveCalcCache(ctx context.Context, key livecalc.Key, entry livecalc.Entry) error {
	result, err := encode(entry.Result)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO livecalc_cache (org_id, process_id, result, stored_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (org_id, process_id) DO UPDATE SET result = excluded.result, stored_at = excluded.stored_at`,
		key.OrgID, key.ProcessID, string(result), formatTime(entry.StoredAt),
	)
	return eris.Wrapf(err, "sqlite: put livecalc cache %s", key)
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run model.CalculationRun) error {
	warnings, err := encode(nonNilWarnings(run.Warnings))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO calculation_runs (id, product_id, org_id, status, warnings, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.ProductID, run.OrgID, string(run.Status), string(warnings), formatTime(run.StartedAt),
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, warnings []model.Warning) error {
	return s.finishRun(ctx, runID, model.RunStatusComplete, "", warnings)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID, reason string, warnings []model.Warning) error {
	return s.finishRun(ctx, runID, model.RunStatusFailed, reason, warnings)
}

func (s *SQLiteStore) finishRun(ctx context.Context, runID string, status model.RunStatus, reason string, warnings []model.Warning) error {
	w, err := encode(nonNilWarnings(warnings))
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE calculation_runs SET status = ?, error = ?, warnings = ?, completed_at = ? WHERE id = ?`,
		string(status), reason, string(w), formatTime(s.now()), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run %s: rows affected", runID)
	}
	if n == 0 {
		return &NotFoundError{Entity: "run", ID: runID}
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.CalculationRun, error) {
	var r model.CalculationRun
	var warnings, startedAt string
	var completedAt sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, product_id, org_id, status, warnings, error, started_at, completed_at FROM calculation_runs WHERE id = ?`,
		runID,
	).Scan(&r.ID, &r.ProductID, &r.OrgID, &r.Status, &warnings, &r.Error, &startedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "run", ID: runID}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		r.CompletedAt = &t
	}
	if err := decode([]byte(warnings), &r.Warnings); err != nil {
		return nil, err
	}
	return &r, nil
}

// --- Calculation output ---

// SaveCalculation writes a run's impacts, allocations and aggregate in one
// transaction. On error nothing is written.
func (s *SQLiteStore) SaveCalculation(ctx context.Context, out model.RunOutput) error {
	now := formatTime(s.now())
	return s.inTx(ctx, "save calculation "+out.RunID, func(tx *sql.Tx) error {
		if err := saveResolvedImpactsTx(ctx, tx, out.RunID, out.ProductID, out.Impacts, now); err != nil {
			return err
		}
		if err := saveAllocationsTx(ctx, tx, out.RunID, out.ProductID, out.Allocations, now); err != nil {
			return err
		}
		return saveAggregateTx(ctx, tx, out.RunID, out.Aggregated, out.Interpretation, now)
	})
}

func saveResolvedImpactsTx(ctx context.Context, tx *sql.Tx, runID, productID string, impacts []model.ResolvedImpact, now string) error {
	if len(impacts) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO resolved_impacts (product_id, material_id, run_id, record, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (product_id, material_id) DO UPDATE SET run_id = excluded.run_id, record = excluded.record, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, ri := range impacts {
		record, err := encode(ri)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, productID, ri.MaterialID, runID, string(record), now); err != nil {
			return eris.Wrapf(err, "resolved impact %s", ri.MaterialID)
		}
	}
	return nil
}

func (s *SQLiteStore) ListResolvedImpacts(ctx context.Context, productID string) ([]model.ResolvedImpact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM resolved_impacts WHERE product_id = ? ORDER BY material_id`,
		productID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list resolved impacts %s", productID)
	}
	defer rows.Close()

	var out []model.ResolvedImpact
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan resolved impact")
		}
		var ri model.ResolvedImpact
		if err := decode([]byte(record), &ri); err != nil {
			return nil, err
		}
		out = append(out, ri)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list resolved impacts iterate")
}

func saveAllocationsTx(ctx context.Context, tx *sql.Tx, runID, productID string, allocs []model.AllocationResult, now string) error {
	if len(allocs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO facility_allocations (product_id, facility_id, period_start, period_end, run_id, record, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (product_id, facility_id, period_start, period_end)
		 DO UPDATE SET run_id = excluded.run_id, record = excluded.record, updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, a := range allocs {
		record, err := encode(a)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, productID, a.Allocation.FacilityID,
			formatTime(a.Allocation.Period.Start), formatTime(a.Allocation.Period.End),
			runID, string(record), now); err != nil {
			return eris.Wrapf(err, "allocation %s", a.Allocation.FacilityID)
		}
	}
	return nil
}

// LatestAllocations returns the allocations written by the most recent run
// that saved any for the product.
func (s *SQLiteStore) LatestAllocations(ctx context.Context, productID string) ([]model.AllocationResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM facility_allocations
		 WHERE product_id = ?1 AND run_id = (
		   SELECT run_id FROM facility_allocations WHERE product_id = ?1 ORDER BY updated_at DESC, rowid DESC LIMIT 1
		 )
		 ORDER BY facility_id, period_start`,
		productID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest allocations %s", productID)
	}
	defer rows.Close()

	var out []model.AllocationResult
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan allocation")
		}
		var a model.AllocationResult
		if err := decode([]byte(record), &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: latest allocations iterate")
}

func saveAggregateTx(ctx context.Context, tx *sql.Tx, runID string, agg model.AggregatedImpacts, interp model.InterpretationResult, now string) error {
	aggJSON, err := encode(agg)
	if err != nil {
		return err
	}
	interpJSON, err := encode(interp)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO aggregated_impacts (product_id, run_id, aggregate, interpretation, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (product_id) DO UPDATE SET run_id = excluded.run_id, aggregate = excluded.aggregate,
		   interpretation = excluded.interpretation, updated_at = excluded.updated_at`,
		agg.ProductID, runID, string(aggJSON), string(interpJSON), now,
	)
	return eris.Wrapf(err, "aggregate %s", agg.ProductID)
}

func (s *SQLiteStore) GetAggregate(ctx context.Context, productID string) (*AggregateRecord, error) {
	rec := AggregateRecord{ProductID: productID}
	var aggJSON, interpJSON, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, aggregate, interpretation, updated_at FROM aggregated_impacts WHERE product_id = ?`,
		productID,
	).Scan(&rec.RunID, &aggJSON, &interpJSON, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "aggregate", ID: productID}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get aggregate %s", productID)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if err := decode([]byte(aggJSON), &rec.Aggregated); err != nil {
		return nil, err
	}
	if err := decode([]byte(interpJSON), &rec.Interpretation); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, action string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s: begin tx", action)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return eris.Wrapf(err, "sqlite: %s", action)
	}
	return eris.Wrapf(tx.Commit(), "sqlite: %s: commit", action)
}
