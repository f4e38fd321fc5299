package costing

// Default rate multipliers over the general labor rate. Finishing and modeling work
// is billed above general handling when the shop has no explicit rate for them.
const (
	PaintingRateMultiplier = 1.5
	ModelingRateMultiplier = 2.5
)

// PaintingRate returns the painting hourly rate, defaulting to 1.5x the general rate.
func PaintingRate(settings Settings) float64 {
	if settings.HumanHourlyRatePainting != nil {
		return *settings.HumanHourlyRatePainting
	}
	return settings.HumanHourlyRate * PaintingRateMultiplier
}

// ModelingRate returns the modeling hourly rate, defaulting to 2.5x the general rate.
func ModelingRate(settings Settings) float64 {
	if settings.HumanHourlyRateModeling != nil {
		return *settings.HumanHourlyRateModeling
	}
	return settings.HumanHourlyRate * ModelingRateMultiplier
}

// ValueLabor converts labor minutes into money. The detailed split is used when
// present; otherwise humanMinutes is billed at the general rate.
func ValueLabor(humanMinutes float64, detail *LaborDetail, riskFactor float64, settings Settings) float64 {
	if detail == nil {
		return hoursAt(humanMinutes, riskFactor) * settings.HumanHourlyRate
	}

	general := hoursAt(detail.GeneralMinutes, riskFactor) * settings.HumanHourlyRate
	painting := hoursAt(detail.PaintingMinutes, riskFactor) * PaintingRate(settings)
	modeling := hoursAt(detail.ModelingMinutes, riskFactor) * ModelingRate(settings)
	return general + painting + modeling
}

func hoursAt(minutes, riskFactor float64) float64 {
	return minutes * riskFactor / 60
}
