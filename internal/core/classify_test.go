package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyProductKeywords(t *testing.T) {
	inputs := []string{
		"RoundUp Max",
		"roundup",
		"GOLD 480",
		"Atrazine Ultra",
		"glyphosate max strength",
	}
	for _, input := range inputs {
		require.Equal(t, QueryTypeProduct, Classify(input), input)
	}
}

func TestClassifyAnyCasing(t *testing.T) {
	for _, keyword := range ProductKeywords() {
		require.Equal(t, QueryTypeProduct, Classify(strings.ToUpper(keyword)))
		require.Equal(t, QueryTypeProduct, Classify("x"+keyword+"y"))
	}
}

func TestClassifyActiveIngredient(t *testing.T) {
	inputs := []string{"glyphosate", "Atrazine", "2,4-D", "Unknown Compound 9999", "", "   "}
	for _, input := range inputs {
		require.Equal(t, QueryTypeActiveIngredient, Classify(input), input)
	}
}

func TestNewChemicalQuery(t *testing.T) {
	query := NewChemicalQuery("RoundUp Max")
	require.Equal(t, "RoundUp Max", query.RawText)
	require.Equal(t, QueryTypeProduct, query.ClassifiedType)
}
