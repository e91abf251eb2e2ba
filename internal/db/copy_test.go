package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var utilityCols = []string{"id", "facility_id", "utility_type", "quantity", "unit", "period_start", "period_end"}

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.Background(), nil, "utility_records", utilityCols, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"impact", "utility_records"}, utilityCols).WillReturnResult(2)

	rows := [][]any{
		{"u1", "fac-a", "electricity", 1200.0, "kWh", nil, nil},
		{"u2", "fac-a", "natural_gas", 80.0, "m3", nil, nil},
	}
	n, err := CopyFrom(context.Background(), mock, "impact.utility_records", utilityCols, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"utility_records"}, utilityCols).WillReturnError(errors.New("permission denied"))

	_, err = CopyFrom(context.Background(), mock, "utility_records", utilityCols, [][]any{{"u1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: copy into utility_records")
	assert.NoError(t, mock.ExpectationsWereMet())
}
