package core

import "strings"

// productKeywords are fragments that show up in commercial trade names.
var productKeywords = []string{"roundup", "max", "gold", "ultra"}

// Classify labels raw text as a product when it contains a trade-name keyword.
func Classify(raw string) QueryType {
	lowered := strings.ToLower(raw)
	for _, keyword := range productKeywords {
		if strings.Contains(lowered, keyword) {
			return QueryTypeProduct
		}
	}
	return QueryTypeActiveIngredient
}

// ProductKeywords returns a copy of the classifier keyword set.
func ProductKeywords() []string {
	out := make([]string, len(productKeywords))
	copy(out, productKeywords)
	return out
}
