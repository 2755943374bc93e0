package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultAliasesMatchNormalized(t *testing.T) {
	table := DefaultAliases()
	require.Greater(t, table.Len(), 10)

	ingredient, ok := table.Match("Round-Up  ULTRA")
	require.True(t, ok)
	require.Equal(t, "glyphosate", ingredient)

	_, ok = table.Match("Unknown Compound 9999")
	require.False(t, ok)
}

func TestAliasMatchPrefersLongestKey(t *testing.T) {
	table := NewAliasTable(map[string]string{
		"dual":     "metolachlor",
		"dualgold": "s-metolachlor",
	})

	ingredient, ok := table.Match("Dual Gold")
	require.True(t, ok)
	require.Equal(t, "s-metolachlor", ingredient)
}

func TestLoadAliasesMergesUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  roundup: glyphosate-isopropylammonium\n  mystery max: zeta\n"), 0o600))

	table, err := LoadAliases(path)
	require.NoError(t, err)

	ingredient, ok := table.Match("RoundUp")
	require.True(t, ok)
	require.Equal(t, "glyphosate-isopropylammonium", ingredient)

	ingredient, ok = table.Match("Mystery Max")
	require.True(t, ok)
	require.Equal(t, "zeta", ingredient)

	ingredient, ok = table.Match("Gramoxone")
	require.True(t, ok)
	require.Equal(t, "paraquat", ingredient)
}

func TestLoadAliasesMissingFile(t *testing.T) {
	_, err := LoadAliases(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
