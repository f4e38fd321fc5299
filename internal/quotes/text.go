package quotes

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func money(v float64, currency string) string {
	return decimal.NewFromFloat(v).StringFixed(2) + " " + currency
}

func number(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}

// Text renders a plain-text summary of a stored quote, suitable for pasting into a chat.
func Text(q Quote) string {
	var b strings.Builder
	b.Grow(512)

	title := q.Title
	if title == "" {
		title = fmt.Sprintf("Cotización #%d", q.ID)
	}
	fmt.Fprintf(&b, "%s\n", title)
	if q.CreatedAt != "" {
		fmt.Fprintf(&b, "Fecha: %s\n", q.CreatedAt)
	}
	fmt.Fprintf(&b, "Referencia: %s\n\n", q.PublicID)

	fmt.Fprintf(&b, "Total: %s\n", money(q.Totals.Total, q.Currency))
	fmt.Fprintf(&b, "Cantidad: %d\n", q.Breakdown.Quantity)
	fmt.Fprintf(&b, "Precio unitario: %s\n", money(q.Totals.Total/float64(max(q.Breakdown.Quantity, 1)), q.Currency))
	if q.Totals.Total != q.Totals.RecommendedPrice {
		fmt.Fprintf(&b, "Precio sugerido: %s\n", money(q.Totals.RecommendedPrice, q.Currency))
	}

	b.WriteString("\nDesglose:\n")
	bd := q.Breakdown
	for _, line := range []struct {
		label string
		value float64
	}{
		{"Electricidad", bd.Electricity},
		{"Depreciación", bd.Depreciation},
		{"Material", bd.Material},
		{"Costos extra", bd.Extra},
		{"Consumibles", bd.Consumables},
		{"Tarifa de arranque", bd.StartupFee},
		{"Costo directo", bd.TotalDirect},
		{"Mano de obra", bd.LaborValue},
		{"Costo unitario", bd.UnitTotalCost},
	} {
		fmt.Fprintf(&b, "- %s: %s\n", line.label, money(line.value, q.Currency))
	}

	if len(bd.Jobs) > 0 {
		b.WriteString("\nTrabajos de máquina:\n")
		for _, job := range bd.Jobs {
			name := job.MachineName
			if name == "" {
				name = job.MachineID
			}
			if name == "" {
				name = string(job.Type)
			}
			fmt.Fprintf(&b, "- %s (%s): %s min, %s g\n", name, job.Type, number(job.AdjustedMinutes), number(job.AdjustedGrams))
		}
	}

	b.WriteString("\nSupuestos:\n")
	fmt.Fprintf(&b, "- Margen: %s%%\n", number(q.MarginPercent))
	fmt.Fprintf(&b, "- Factor de riesgo: %s\n", number(bd.RiskFactor))
	fmt.Fprintf(&b, "- Minutos de máquina (con riesgo): %s\n", number(bd.TotalMachineMinutes))
	if q.Totals.MarginFallback {
		b.WriteString("- Margen >= 100%: se aplicó el doble del costo base\n")
	}
	for _, rule := range q.Totals.AppliedRules {
		fmt.Fprintf(&b, "- Regla aplicada: %s\n", rule)
	}
	for _, warning := range bd.Warnings {
		fmt.Fprintf(&b, "- Advertencia: %s\n", warning)
	}

	if q.Notes != "" {
		fmt.Fprintf(&b, "\nNotas: %s\n", q.Notes)
	}

	return b.String()
}
