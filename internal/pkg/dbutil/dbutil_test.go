package dbutil

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalize_RewritesLimitAndPlaceholders(t *testing.T) {
	query := "SELECT id FROM sessions WHERE id=? ORDER BY ctime DESC LIMIT ?,?"
	args := []interface{}{"s1", 10, 5}
	rewritten, out := Finalize(query, args)
	require.Equal(t, "SELECT id FROM sessions WHERE id=$1 ORDER BY ctime DESC LIMIT $2 OFFSET $3", rewritten)
	require.Equal(t, []interface{}{"s1", 5, 10}, out)
}

func TestFinalize_NoLimitClause(t *testing.T) {
	query := "SELECT id FROM sessions WHERE id=? AND ctime>?"
	rewritten, out := Finalize(query, []interface{}{"s1", 0})
	require.Equal(t, "SELECT id FROM sessions WHERE id=$1 AND ctime>$2", rewritten)
	require.Len(t, out, 2)
}

func TestIsConflict(t *testing.T) {
	require.True(t, IsConflict(&pq.Error{Code: "23505"}))
	require.False(t, IsConflict(&pq.Error{Code: "23503"}))
	require.False(t, IsConflict(nil))
}
