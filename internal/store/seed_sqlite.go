package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sells-group/impact-engine/internal/db"
)

// Seed loads fixtures in one transaction, replacing rows by primary key.
func (s *SQLiteStore) Seed(ctx context.Context, f *Fixtures) error {
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
	if len(f.Utilities) > 0 {
		rows := make([][]any, len(f.Utilities))
		for i, u := range f.Utilities {
			rows[i] = []any{u.ID, u.FacilityID, string(u.Type), u.Quantity, u.Unit, formatTime(u.PeriodStart), formatTime(u.PeriodEnd)}
		}
		batches = append(batches, seedBatch{
			cfg:  db.UpsertConfig{Table: "utility_records", Columns: utilityColumns, ConflictKeys: []string{"id"}},
			rows: rows,
		})
	}

	return s.inTx(ctx, "seed", func(tx *sql.Tx) error {
		for _, b := range batches {
			stmt, err := tx.PrepareContext(ctx, sqliteUpsert(b.cfg))
			if err != nil {
				return err
			}
			for _, row := range b.rows {
				if _, err := stmt.ExecContext(ctx, sqliteArgs(row)...); err != nil {
					stmt.Close()
					return err
				}
			}
			stmt.Close()
		}
		return nil
	})
}

// sqliteUpsert renders cfg as a single-row INSERT ... ON CONFLICT.
func sqliteUpsert(cfg db.UpsertConfig) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cfg.Columns)), ", ")
	conflict := make(map[string]bool, len(cfg.ConflictKeys))
	for _, k := range cfg.ConflictKeys {
		conflict[k] = true
	}
	var sets []string
	for _, c := range cfg.Columns {
		if !conflict[c] {
			sets = append(sets, c+" = excluded."+c)
		}
	}
	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return "INSERT INTO " + cfg.Table + " (" + strings.Join(cfg.Columns, ", ") + ") VALUES (" + placeholders +
		") ON CONFLICT (" + strings.Join(cfg.ConflictKeys, ", ") + ") " + action
}

// sqliteArgs stores JSON payloads as text. Nil byte slices stay NULL.
func sqliteArgs(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
		if b, ok := v.([]byte); ok {
			out[i] = nil
			if b != nil {
				out[i] = string(b)
			}
		}
	}
	return out
}
