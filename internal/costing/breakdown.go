// Package costing computes itemized production costs of 3D-print jobs.
//
// Every function is pure: the same Input and Settings always produce the same
// Breakdown, and Settings is never modified. Inputs are not validated; negative
// values propagate arithmetically and callers are expected to reject them first.
package costing

// EffectiveQuantity clamps the requested quantity to at least one unit.
func EffectiveQuantity(quantity int) int {
	if quantity < 1 {
		return 1
	}
	return quantity
}

// Build computes the full cost breakdown of a production job.
func Build(input Input, settings Settings) Breakdown {
	risk := RiskFactor(input.FailureRatePercent)

	machines := AggregateMachines(NormalizeJobs(input), risk, settings)
	labor := ValueLabor(input.HumanMinutes, input.LaborDetails, risk, settings)

	startupFee := 0.0
	if settings.StartupFee != nil {
		startupFee = *settings.StartupFee
	}

	totalDirect := machines.Electricity +
		machines.Depreciation +
		machines.Material +
		input.ExtraCost +
		input.ConsumablesCost +
		startupFee

	quantity := EffectiveQuantity(input.Quantity)

	return Breakdown{
		Electricity:         machines.Electricity,
		Depreciation:        machines.Depreciation,
		Material:            machines.Material,
		Extra:               input.ExtraCost,
		Consumables:         input.ConsumablesCost,
		StartupFee:          startupFee,
		TotalDirect:         totalDirect,
		LaborValue:          labor,
		RiskFactor:          risk,
		TotalMachineMinutes: machines.TotalMachineMinutes,
		Quantity:            quantity,
		UnitTotalCost:       (totalDirect + labor) / float64(quantity),
		Jobs:                machines.Jobs,
		Warnings:            machines.Warnings,
	}
}
