package costing

import "fmt"

// Power draw per machine type in kW. Resin printers draw less than FDM printers.
const (
	FDMPowerDrawKw   = 0.20
	ResinPowerDrawKw = 0.10
)

// PowerDrawKw returns the fixed power draw assumed for a machine type.
func PowerDrawKw(t MachineType) float64 {
	if t == MachineResin {
		return ResinPowerDrawKw
	}
	return FDMPowerDrawKw
}

// MaterialCostPerKg returns the material unit cost for a machine type.
func MaterialCostPerKg(t MachineType, settings Settings) float64 {
	if t == MachineResin {
		return settings.ResinCostPerKg
	}
	return settings.FilamentCostPerKg
}

// RiskFactor converts a failure rate percentage into a multiplier.
func RiskFactor(failureRatePercent float64) float64 {
	return 1 + failureRatePercent/100
}

// NormalizeJobs resolves the legacy aggregate fields and the structured job list
// into a single job list. Legacy entries become one FDM job without a machine id,
// so its rate resolves to the FDM catalog average.
func NormalizeJobs(input Input) []MachineJob {
	if len(input.MachineDetails) > 0 {
		return input.MachineDetails
	}
	if input.TotalMinutes == 0 && input.MaterialWeightGrams == 0 {
		return nil
	}
	return []MachineJob{{
		Type:            MachineFDM,
		DurationMinutes: input.TotalMinutes,
		WeightGrams:     input.MaterialWeightGrams,
	}}
}

type rateResolver func(job MachineJob, settings Settings) (float64, bool)

// rateChain is tried in order; the first resolver with a hit wins.
var rateChain = []struct {
	source  RateSource
	resolve rateResolver
}{
	{RateFromJob, jobRate},
	{RateFromCatalog, catalogRate},
	{RateFromTypeAverage, typeAverageRate},
}

func jobRate(job MachineJob, _ Settings) (float64, bool) {
	if job.HourlyRate == nil {
		return 0, false
	}
	return *job.HourlyRate, true
}

func catalogRate(job MachineJob, settings Settings) (float64, bool) {
	if job.MachineID == "" {
		return 0, false
	}
	for _, m := range settings.Machines {
		if m.ID == job.MachineID {
			return m.HourlyRate, true
		}
	}
	return 0, false
}

func typeAverageRate(job MachineJob, settings Settings) (float64, bool) {
	var sum float64
	var n int
	for _, m := range settings.Machines {
		if m.Type == job.Type {
			sum += m.HourlyRate
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// ResolveDepreciationRate returns the hourly depreciation rate of a job and the
// lookup that produced it. An unresolvable rate is 0.
func ResolveDepreciationRate(job MachineJob, settings Settings) (float64, RateSource) {
	for _, step := range rateChain {
		if rate, ok := step.resolve(job, settings); ok {
			return rate, step.source
		}
	}
	return 0, RateUnresolved
}

// AggregateMachines costs every job and sums electricity, depreciation and material.
func AggregateMachines(jobs []MachineJob, riskFactor float64, settings Settings) MachineCosts {
	var out MachineCosts
	if len(jobs) > 0 {
		out.Jobs = make([]JobCost, 0, len(jobs))
	}

	for _, job := range jobs {
		adjustedMinutes := job.DurationMinutes * riskFactor
		hours := adjustedMinutes / 60
		adjustedGrams := job.WeightGrams * riskFactor

		rate, source := ResolveDepreciationRate(job, settings)
		if source == RateUnresolved {
			out.Warnings = append(out.Warnings, unresolvedRateWarning(job))
		}

		line := JobCost{
			MachineID:        job.MachineID,
			MachineName:      job.MachineName,
			Type:             job.Type,
			AdjustedMinutes:  adjustedMinutes,
			AdjustedGrams:    adjustedGrams,
			Electricity:      PowerDrawKw(job.Type) * settings.ElectricityPricePerKwh * hours,
			Depreciation:     rate * hours,
			Material:         (adjustedGrams / 1000) * MaterialCostPerKg(job.Type, settings),
			DepreciationRate: rate,
			RateSource:       source,
		}

		out.TotalMachineMinutes += adjustedMinutes
		out.Electricity += line.Electricity
		out.Depreciation += line.Depreciation
		out.Material += line.Material
		out.Jobs = append(out.Jobs, line)
	}

	return out
}

func unresolvedRateWarning(job MachineJob) string {
	if job.MachineID == "" {
		return fmt.Sprintf("no %s machines in catalog: depreciation rate resolved to 0", job.Type)
	}
	return fmt.Sprintf("machine %q not in catalog and no %s machines registered: depreciation rate resolved to 0", job.MachineID, job.Type)
}
