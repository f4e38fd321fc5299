package costing

// MachineType identifies the printing process family of a machine.
type MachineType string

const (
	MachineFDM   MachineType = "fdm"
	MachineResin MachineType = "resin"
)

// Valid reports whether t is a known machine type.
func (t MachineType) Valid() bool {
	return t == MachineFDM || t == MachineResin
}

// MachineJob is one manufacturing pass on one machine.
type MachineJob struct {
	MachineID       string      `json:"machineId" yaml:"machineId"`
	MachineName     string      `json:"machineName,omitempty" yaml:"machineName"`
	Type            MachineType `json:"type" yaml:"type"`
	DurationMinutes float64     `json:"durationMinutes" yaml:"durationMinutes"`
	WeightGrams     float64     `json:"weightGrams" yaml:"weightGrams"`
	// HourlyRate overrides the catalog depreciation rate when set.
	HourlyRate *float64 `json:"hourlyRate,omitempty" yaml:"hourlyRate"`
}

// LaborDetail splits labor minutes into differently priced classes.
type LaborDetail struct {
	GeneralMinutes  float64 `json:"generalMinutes" yaml:"generalMinutes"`
	PaintingMinutes float64 `json:"paintingMinutes" yaml:"paintingMinutes"`
	ModelingMinutes float64 `json:"modelingMinutes" yaml:"modelingMinutes"`
}

// Input holds the raw production parameters of a job.
//
// TotalMinutes and MaterialWeightGrams are only read when MachineDetails is empty;
// HumanMinutes is only read when LaborDetails is nil.
type Input struct {
	TotalMinutes        float64      `json:"totalMinutes" yaml:"totalMinutes"`
	MaterialWeightGrams float64      `json:"materialWeightGrams" yaml:"materialWeightGrams"`
	HumanMinutes        float64      `json:"humanMinutes" yaml:"humanMinutes"`
	ExtraCost           float64      `json:"extraCost" yaml:"extraCost"`
	FailureRatePercent  float64      `json:"failureRatePercent" yaml:"failureRatePercent"`
	Quantity            int          `json:"quantity,omitempty" yaml:"quantity"`
	MachineDetails      []MachineJob `json:"machineDetails,omitempty" yaml:"machineDetails"`
	LaborDetails        *LaborDetail `json:"laborDetails,omitempty" yaml:"laborDetails"`
	ConsumablesCost     float64      `json:"consumablesCost" yaml:"consumablesCost"`
}

// Machine is a catalog entry used to resolve depreciation rates.
type Machine struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name,omitempty" yaml:"name"`
	Type       MachineType `json:"type" yaml:"type"`
	HourlyRate float64     `json:"hourlyRate" yaml:"hourlyRate"`
}

// Settings are the shop cost settings. The engine only reads them.
//
// Nil optional rates are unset and fall back to their defaults; an explicit zero is honored.
type Settings struct {
	ElectricityPricePerKwh  float64   `json:"electricityPricePerKwh" yaml:"electricityPricePerKwh"`
	FilamentCostPerKg       float64   `json:"filamentCostPerKg" yaml:"filamentCostPerKg"`
	ResinCostPerKg          float64   `json:"resinCostPerKg" yaml:"resinCostPerKg"`
	HumanHourlyRate         float64   `json:"humanHourlyRate" yaml:"humanHourlyRate"`
	HumanHourlyRatePainting *float64  `json:"humanHourlyRatePainting,omitempty" yaml:"humanHourlyRatePainting"`
	HumanHourlyRateModeling *float64  `json:"humanHourlyRateModeling,omitempty" yaml:"humanHourlyRateModeling"`
	StartupFee              *float64  `json:"startupFee,omitempty" yaml:"startupFee"`
	Machines                []Machine `json:"machines" yaml:"machines"`
}

// RateSource records which lookup resolved a job's depreciation rate.
type RateSource string

const (
	RateFromJob         RateSource = "job"
	RateFromCatalog     RateSource = "catalog"
	RateFromTypeAverage RateSource = "type_average"
	RateUnresolved      RateSource = "none"
)

// JobCost is the costed line item of a single machine job.
type JobCost struct {
	MachineID        string      `json:"machineId,omitempty"`
	MachineName      string      `json:"machineName,omitempty"`
	Type             MachineType `json:"type"`
	AdjustedMinutes  float64     `json:"adjustedMinutes"`
	AdjustedGrams    float64     `json:"adjustedGrams"`
	Electricity      float64     `json:"electricity"`
	Depreciation     float64     `json:"depreciation"`
	Material         float64     `json:"material"`
	DepreciationRate float64     `json:"depreciationRate"`
	RateSource       RateSource  `json:"rateSource"`
}

// MachineCosts is the aggregate machine cost of a job list.
type MachineCosts struct {
	Electricity         float64
	Depreciation        float64
	Material            float64
	TotalMachineMinutes float64
	Jobs                []JobCost
	Warnings            []string
}

// Breakdown is the itemized cost of a production job.
type Breakdown struct {
	Electricity  float64 `json:"electricity"`
	Depreciation float64 `json:"depreciation"`
	Material     float64 `json:"material"`
	Extra        float64 `json:"extra"`
	Consumables  float64 `json:"consumables"`
	StartupFee   float64 `json:"startupFee"`
	// TotalDirect is the sum of the six fields above.
	TotalDirect         float64   `json:"totalDirect"`
	LaborValue          float64   `json:"laborValue"`
	RiskFactor          float64   `json:"riskFactor"`
	TotalMachineMinutes float64   `json:"totalMachineMinutes"`
	Quantity            int       `json:"quantity"`
	UnitTotalCost       float64   `json:"unitTotalCost"`
	Jobs                []JobCost `json:"jobs,omitempty"`
	Warnings            []string  `json:"warnings,omitempty"`
}

// TotalBaseCost is the direct cost plus labor for the whole job.
func (b Breakdown) TotalBaseCost() float64 {
	return b.TotalDirect + b.LaborValue
}
