// Package quoting turns estimate requests into priced quotes: it resolves settings and
// consumable presets, runs the costing engine and the pricing recommender, applies
// shop price rules and records metrics.
package quoting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Simplici0/costeo3d/internal/costing"
	"github.com/Simplici0/costeo3d/internal/metrics"
	"github.com/Simplici0/costeo3d/internal/pricing"
	"github.com/Simplici0/costeo3d/internal/quotes"
	"github.com/Simplici0/costeo3d/internal/rules"
)

// SettingsSource supplies shop settings and consumable preset costs.
type SettingsSource interface {
	Load(ctx context.Context) (costing.Settings, error)
	ConsumablesCost(ctx context.Context, ids []int64) (float64, error)
}

// QuoteStore persists quote snapshots.
type QuoteStore interface {
	Create(ctx context.Context, q quotes.Quote) (quotes.Quote, error)
}

// Request is an estimate request.
type Request struct {
	Input         costing.Input `json:"input" yaml:"input"`
	MarginPercent float64       `json:"marginPercent" yaml:"marginPercent"`
	ConsumableIDs []int64       `json:"consumableIds,omitempty" yaml:"consumableIds"`
}

// Estimate is a priced estimate.
type Estimate struct {
	Input        costing.Input     `json:"input"`
	Breakdown    costing.Breakdown `json:"breakdown"`
	Pricing      pricing.Result    `json:"pricing"`
	FinalPrice   float64           `json:"finalPrice"`
	AppliedRules []string          `json:"appliedRules,omitempty"`
	Currency     string            `json:"currency"`
}

// Deps are the collaborators of an Estimator. Quotes, Rules and Metrics are optional.
type Deps struct {
	Settings SettingsSource
	Quotes   QuoteStore
	Rules    *rules.Set
	Metrics  *metrics.Collector
	Logger   *slog.Logger
	Currency string
}

// Estimator produces estimates. It is safe for concurrent use.
type Estimator struct {
	settings SettingsSource
	quotes   QuoteStore
	rules    *rules.Set
	metrics  *metrics.Collector
	logger   *slog.Logger
	currency string
}

// NewEstimator returns an Estimator wired to d.
func NewEstimator(d Deps) *Estimator {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	currency := d.Currency
	if currency == "" {
		currency = "COP"
	}
	return &Estimator{
		settings: d.Settings,
		quotes:   d.Quotes,
		rules:    d.Rules,
		metrics:  d.Metrics,
		logger:   logger,
		currency: currency,
	}
}

// Estimate validates req and prices it. source labels metrics (http, ws, cli).
func (e *Estimator) Estimate(ctx context.Context, source string, req Request) (Estimate, error) {
	started := time.Now()

	est, err := e.estimate(ctx, req)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordFailure(source)
		}
		if !errors.Is(err, ErrInvalidInput) {
			e.logger.ErrorContext(ctx, "estimate failed", "source", source, "error", err)
		}
		return Estimate{}, err
	}

	if e.metrics != nil {
		e.metrics.RecordEstimate(source, time.Since(started).Seconds(), len(est.Breakdown.Warnings), est.Pricing.MarginFallback)
	}

	logger := e.logger.With("source", source)
	for _, w := range est.Breakdown.Warnings {
		logger.WarnContext(ctx, "estimate warning", "warning", w)
	}
	logger.InfoContext(ctx, "estimate computed",
		"risk_factor", est.Breakdown.RiskFactor,
		"quantity", est.Breakdown.Quantity,
		"unit_total_cost", est.Breakdown.UnitTotalCost,
		"recommended_price", est.Pricing.RecommendedPrice,
		"final_price", est.FinalPrice,
		"applied_rules", est.AppliedRules,
	)

	return est, nil
}

func (e *Estimator) estimate(ctx context.Context, req Request) (Estimate, error) {
	if err := Validate(req); err != nil {
		return Estimate{}, err
	}

	input := req.Input
	if len(req.ConsumableIDs) > 0 {
		presets, err := e.settings.ConsumablesCost(ctx, req.ConsumableIDs)
		if err != nil {
			return Estimate{}, fmt.Errorf("resolve consumables: %w", err)
		}
		input.ConsumablesCost += presets
	}

	settings, err := e.settings.Load(ctx)
	if err != nil {
		return Estimate{}, fmt.Errorf("load shop settings: %w", err)
	}

	breakdown := costing.Build(input, settings)
	price := pricing.Recommend(breakdown, req.MarginPercent)

	outcome, err := e.rules.Apply(breakdown, price)
	if err != nil {
		return Estimate{}, fmt.Errorf("apply price rules: %w", err)
	}

	return Estimate{
		Input:        input,
		Breakdown:    breakdown,
		Pricing:      price,
		FinalPrice:   outcome.FinalPrice,
		AppliedRules: outcome.AppliedRules,
		Currency:     e.currency,
	}, nil
}

// Save estimates req and stores the result as a quote snapshot.
func (e *Estimator) Save(ctx context.Context, source, title, notes string, req Request) (quotes.Quote, error) {
	if e.quotes == nil {
		return quotes.Quote{}, errors.New("quote store not configured")
	}

	est, err := e.Estimate(ctx, source, req)
	if err != nil {
		return quotes.Quote{}, err
	}

	q, err := e.quotes.Create(ctx, QuoteFromEstimate(title, notes, est))
	if err != nil {
		return quotes.Quote{}, fmt.Errorf("save quote: %w", err)
	}

	if e.metrics != nil {
		e.metrics.RecordQuoteSaved()
	}
	e.logger.InfoContext(ctx, "quote saved", "quote_id", q.ID, "public_id", q.PublicID, "total", q.Totals.Total)
	return q, nil
}

// QuoteFromEstimate builds the snapshot stored for an estimate.
func QuoteFromEstimate(title, notes string, est Estimate) quotes.Quote {
	return quotes.Quote{
		Title:         title,
		Notes:         notes,
		Currency:      est.Currency,
		MarginPercent: est.Pricing.MarginPercent,
		Input:         est.Input,
		Breakdown:     est.Breakdown,
		Totals: quotes.Totals{
			Total:            est.FinalPrice,
			RecommendedPrice: est.Pricing.RecommendedPrice,
			TotalBaseCost:    est.Pricing.TotalBaseCost,
			UnitTotalCost:    est.Breakdown.UnitTotalCost,
			UnitPrice:        est.FinalPrice / float64(costing.EffectiveQuantity(est.Breakdown.Quantity)),
			MarginFallback:   est.Pricing.MarginFallback,
			AppliedRules:     est.AppliedRules,
		},
	}
}
