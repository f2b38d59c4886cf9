package inventory_repo

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/inventory"
	"stockledger/internal/infrastructure/storage/postgres"
)

func TestApplyAuditFilter(t *testing.T) {
	status := inventory.StatusInProgress

	sql, args, err := applyAuditFilter(postgres.Builder().Select("id").From(auditTable), inventory.Filter{Status: &status}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM inventory_audits WHERE status = $1", sql)
	assert.Equal(t, []any{status}, args)

	sql, args, err = applyAuditFilter(postgres.Builder().Select("id").From(auditTable), inventory.Filter{}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM inventory_audits", sql)
	assert.Empty(t, args)
}

func TestLineRow(t *testing.T) {
	repo := NewAuditRepo(nil)
	l := &inventory.Line{
		ID:               id.New(),
		AuditID:          id.New(),
		LineNo:           3,
		VariantID:        id.New(),
		SKU:              "SKU-3",
		VariantName:      "Hammer",
		TheoreticalStock: 12,
		UnitCost:         types.MustMoney("6.2500"),
	}

	row := lineRow(l, repo.lineCols)
	require.Len(t, row, len(repo.lineCols))

	byCol := make(map[string]any, len(row))
	for i, c := range repo.lineCols {
		byCol[c] = row[i]
	}
	assert.Equal(t, l.ID, byCol["id"])
	assert.Equal(t, 3, byCol["line_no"])
	assert.Equal(t, int64(12), byCol["theoretical_stock"])
	assert.Equal(t, false, byCol["is_counted"])

	cost, ok := byCol["unit_cost"].(pgtype.Numeric)
	require.True(t, ok)
	assert.True(t, cost.Valid)
	assert.Equal(t, int64(62500), cost.Int.Int64())
	assert.Equal(t, int32(-4), cost.Exp)
}
