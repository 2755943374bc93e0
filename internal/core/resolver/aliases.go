package resolver

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var builtinAliases []byte

// AliasTable maps normalized trade-name fragments to active ingredients.
// It is read-only after construction.
type AliasTable struct {
	entries map[string]string
	keys    []string
}

type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// DefaultAliases returns the built-in alias table.
func DefaultAliases() *AliasTable {
	table, err := ParseAliases(builtinAliases)
	if err != nil {
		panic(fmt.Sprintf("builtin alias table: %v", err))
	}
	return table
}

// LoadAliases returns the built-in table extended with the entries from the
// YAML file at path. Entries in the file take precedence.
func LoadAliases(path string) (*AliasTable, error) {
	table := DefaultAliases()
	if strings.TrimSpace(path) == "" {
		return table, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- user-configured alias file
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}
	extra, err := ParseAliases(data)
	if err != nil {
		return nil, fmt.Errorf("parse alias file %s: %w", path, err)
	}
	return table.Merge(extra), nil
}

// ParseAliases decodes an alias document.
func ParseAliases(data []byte) (*AliasTable, error) {
	var doc aliasFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return NewAliasTable(doc.Aliases), nil
}

// NewAliasTable builds a table from raw key/ingredient pairs.
func NewAliasTable(entries map[string]string) *AliasTable {
	table := &AliasTable{entries: make(map[string]string, len(entries))}
	for key, ingredient := range entries {
		normalized := normalizeAlias(key)
		ingredient = strings.TrimSpace(ingredient)
		if normalized == "" || ingredient == "" {
			continue
		}
		table.entries[normalized] = ingredient
	}
	table.sortKeys()
	return table
}

// Merge returns a new table holding both sets of entries; other wins on
// conflicts.
func (t *AliasTable) Merge(other *AliasTable) *AliasTable {
	merged := &AliasTable{entries: make(map[string]string)}
	for _, src := range []*AliasTable{t, other} {
		if src == nil {
			continue
		}
		for key, ingredient := range src.entries {
			merged.entries[key] = ingredient
		}
	}
	merged.sortKeys()
	return merged
}

// Match returns the ingredient for the longest alias key found in text.
func (t *AliasTable) Match(text string) (string, bool) {
	if t == nil {
		return "", false
	}
	normalized := normalizeAlias(text)
	if normalized == "" {
		return "", false
	}
	for _, key := range t.keys {
		if strings.Contains(normalized, key) {
			return t.entries[key], true
		}
	}
	return "", false
}

// Len returns the number of aliases.
func (t *AliasTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

func (t *AliasTable) sortKeys() {
	t.keys = make([]string, 0, len(t.entries))
	for key := range t.entries {
		t.keys = append(t.keys, key)
	}
	sort.Slice(t.keys, func(i, j int) bool {
		if len(t.keys[i]) != len(t.keys[j]) {
			return len(t.keys[i]) > len(t.keys[j])
		}
		return t.keys[i] < t.keys[j]
	})
}

func normalizeAlias(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
