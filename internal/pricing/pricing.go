package pricing

import "github.com/Simplici0/costeo3d/internal/costing"

// FallbackMultiplier is applied to the base cost when the requested margin is 100% or more,
// where the margin-on-price formula has no finite positive answer.
const FallbackMultiplier = 2.0

// Result contains the recommended sale price for a cost breakdown.
type Result struct {
	TotalBaseCost    float64 `json:"totalBaseCost"`
	MarginPercent    float64 `json:"marginPercent"`
	RecommendedPrice float64 `json:"recommendedPrice"`
	UnitPrice        float64 `json:"unitPrice"`
	MarginFallback   bool    `json:"marginFallback,omitempty"`
}

// Recommend derives a sale price that yields desiredMarginPercent of the price as margin.
func Recommend(breakdown costing.Breakdown, desiredMarginPercent float64) Result {
	base := breakdown.TotalBaseCost()
	result := Result{
		TotalBaseCost: base,
		MarginPercent: desiredMarginPercent,
	}

	if desiredMarginPercent >= 100 {
		result.RecommendedPrice = base * FallbackMultiplier
		result.MarginFallback = true
	} else {
		result.RecommendedPrice = base / (1 - desiredMarginPercent/100)
	}

	result.UnitPrice = result.RecommendedPrice / float64(costing.EffectiveQuantity(breakdown.Quantity))
	return result
}
