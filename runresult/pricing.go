package runresult

import "strings"

// ModelPrice gives USD cost per one million tokens for a model's prompt and
// completion tokens.
type ModelPrice struct {
	InputPerMTokenUSD  float64
	OutputPerMTokenUSD float64
}

// PriceTable resolves a model id to its ModelPrice, falling back to
// longest-prefix match and then to a zero price, per §3/§4.2.
type PriceTable map[string]ModelPrice

// Resolve returns the price for model, trying an exact match first, then the
// longest registered key that is a prefix of model, and finally (0, 0) with
// found=false.
func (t PriceTable) Resolve(model string) (price ModelPrice, found bool) {
	if p, ok := t[model]; ok {
		return p, true
	}
	bestLen := -1
	for id, p := range t {
		if strings.HasPrefix(model, id) && len(id) > bestLen {
			price, bestLen = p, len(id)
			found = true
		}
	}
	return price, found
}

// CostUSD computes the dollar cost of a call given the model id and observed
// token counts. Per §4.2/§7 (PricingMissing), a missing price resolves to
// zero cost rather than an error.
func (t PriceTable) CostUSD(model string, promptTokens, completionTokens int) float64 {
	price, _ := t.Resolve(model)
	return float64(promptTokens)/1e6*price.InputPerMTokenUSD + float64(completionTokens)/1e6*price.OutputPerMTokenUSD
}
