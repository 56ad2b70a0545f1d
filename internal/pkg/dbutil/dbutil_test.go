package dbutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFinalizeRebindsPlaceholders(t *testing.T) {
	query, args := Finalize("SELECT * FROM t WHERE a = ? AND b = ?", []interface{}{1, 2})
	require.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", query)
	require.Equal(t, []interface{}{1, 2}, args)
}

func TestFinalizeRewritesLimitOffset(t *testing.T) {
	// gendry emits MySQL "LIMIT offset, count"; Postgres wants "LIMIT count
	// OFFSET offset" with the args swapped to match.
	query, args := Finalize("SELECT * FROM t WHERE a = ? LIMIT ?,?", []interface{}{"x", 10, 5})
	require.Equal(t, "SELECT * FROM t WHERE a = $1 LIMIT $2 OFFSET $3", query)
	require.Equal(t, []interface{}{"x", 5, 10}, args)
}

func TestFinalizeNoLimitClauseUntouched(t *testing.T) {
	query, args := Finalize("DELETE FROM t WHERE id IN (?,?,?)", []interface{}{1, 2, 3})
	require.Equal(t, "DELETE FROM t WHERE id IN ($1,$2,$3)", query)
	require.Len(t, args, 3)
}
