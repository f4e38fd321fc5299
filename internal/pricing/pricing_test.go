package pricing

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Simplici0/costeo3d/internal/costing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func breakdown(totalDirect, labor float64, quantity int) costing.Breakdown {
	return costing.Breakdown{TotalDirect: totalDirect, LaborValue: labor, Quantity: quantity}
}

func TestRecommend_MarginOnPrice(t *testing.T) {
	result := Recommend(breakdown(45, 15, 1), 40)

	nearlyEqual(t, "totalBaseCost", result.TotalBaseCost, 60)
	nearlyEqual(t, "recommendedPrice", result.RecommendedPrice, 100)
	nearlyEqual(t, "unitPrice", result.UnitPrice, 100)
	if result.MarginFallback {
		t.Fatalf("unexpected fallback for 40%% margin")
	}
}

func TestRecommend_ZeroMarginIsCost(t *testing.T) {
	result := Recommend(breakdown(10, 5, 1), 0)

	nearlyEqual(t, "recommendedPrice", result.RecommendedPrice, 15)
}

func TestRecommend_FullMarginFallsBackToDoubleCost(t *testing.T) {
	for _, margin := range []float64{100, 120, 1000} {
		result := Recommend(breakdown(8.24, 7.5, 1), margin)
		if result.RecommendedPrice != (8.24+7.5)*2 {
			t.Fatalf("margin %v price = %v, want %v", margin, result.RecommendedPrice, (8.24+7.5)*2)
		}
		if !result.MarginFallback {
			t.Fatalf("margin %v should flag fallback", margin)
		}
	}
}

func TestRecommend_UnitPriceUsesQuantity(t *testing.T) {
	result := Recommend(breakdown(30, 10, 4), 50)

	nearlyEqual(t, "recommendedPrice", result.RecommendedPrice, 80)
	nearlyEqual(t, "unitPrice", result.UnitPrice, 20)

	clamped := Recommend(breakdown(30, 10, 0), 50)
	nearlyEqual(t, "clamped unitPrice", clamped.UnitPrice, 80)
}

func TestRecommend_EngineBreakdown(t *testing.T) {
	settings := costing.Settings{
		ElectricityPricePerKwh: 0.6,
		FilamentCostPerKg:      80,
		HumanHourlyRate:        15,
		Machines:               []costing.Machine{{ID: "fdm-1", Type: costing.MachineFDM, HourlyRate: 2}},
	}
	b := costing.Build(costing.Input{
		HumanMinutes: 30,
		MachineDetails: []costing.MachineJob{
			{MachineID: "fdm-1", Type: costing.MachineFDM, DurationMinutes: 120, WeightGrams: 50},
		},
	}, settings)

	result := Recommend(b, 100)

	if result.RecommendedPrice != b.TotalBaseCost()*2 {
		t.Fatalf("recommendedPrice = %v, want %v", result.RecommendedPrice, b.TotalBaseCost()*2)
	}
}

func TestRecommend_MarginRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("realized margin equals requested margin", prop.ForAll(
		func(direct, labor, margin float64) bool {
			result := Recommend(breakdown(direct, labor, 1), margin)
			realized := (result.RecommendedPrice - result.TotalBaseCost) / result.RecommendedPrice
			return math.Abs(realized-margin/100) <= 1e-9
		},
		gen.Float64Range(0.01, 100000),
		gen.Float64Range(0, 5000),
		gen.Float64Range(0, 99.9),
	))

	properties.TestingRun(t)
}
