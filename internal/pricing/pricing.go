package pricing

import (
	"fmt"
	"math"

	"renos/internal/config"
	"renos/internal/lead"
	"renos/pkg/errors"
	"renos/pkg/models"
)

// Calculator derives customer-facing quotes from lead facts. All
// amounts are DKK including VAT.
type Calculator struct {
	cfg config.PricingConfig
}

func NewCalculator(cfg config.PricingConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Crew work-hours per square meter by task type. On-site hours are the
// crew hours divided across the workers.
var hoursPerSqm = map[string]float64{
	lead.TaskMoveOut:    0.10,
	lead.TaskRecurring:  0.03,
	lead.TaskDeep:       0.05,
	lead.TaskCommercial: 0.04,
	lead.TaskGeneral:    0.05,
}

// Sizes outside this range get a warning on the estimate; the formula
// still prices them but the figure is a rougher guess.
const (
	minTypicalSqm = 25
	maxTypicalSqm = 400
)

// Estimate prices a lead. It needs either a floor area or, for
// recurring cleaning, a room count.
func (c *Calculator) Estimate(ld *lead.Lead) (*models.PriceEstimate, error) {
	if ld == nil {
		return nil, errors.ErrValidation.WithDetail("message", "lead is required")
	}

	taskType := ld.TaskType
	if taskType == "" {
		taskType = lead.TaskGeneral
	}

	onSite, err := c.estimateOnSiteHours(taskType, ld.SquareMeters, ld.Rooms)
	if err != nil {
		return nil, err
	}

	workHoursTotal := onSite * float64(c.cfg.Workers)
	total := workHoursTotal * float64(c.cfg.HourlyRate)
	margin := c.cfg.MarginPercent / 100.0

	return &models.PriceEstimate{
		TaskType:       taskType,
		HoursOnSite:    onSite,
		WorkHoursTotal: workHoursTotal,
		Workers:        c.cfg.Workers,
		HourlyRate:     c.cfg.HourlyRate,
		Total:          total,
		TotalLow:       roundKr(total * (1 - margin)),
		TotalHigh:      roundKr(total * (1 + margin)),
		Warnings:       sizeWarnings(ld.SquareMeters),
	}, nil
}

func (c *Calculator) estimateOnSiteHours(taskType string, sqm, rooms int) (float64, error) {
	// Recurring cleaning is quoted per visit; the room count is a
	// better predictor than floor area when both are present.
	if taskType == lead.TaskRecurring && rooms > 0 {
		return c.clampHours(float64(rooms)*0.5 + 1), nil
	}

	if sqm <= 0 {
		return 0, errors.ErrValidation.WithDetail("message", "lead has no usable size information")
	}

	rate, ok := hoursPerSqm[taskType]
	if !ok {
		rate = hoursPerSqm[lead.TaskGeneral]
	}

	return c.clampHours(float64(sqm) * rate / float64(c.cfg.Workers)), nil
}

func sizeWarnings(sqm int) []string {
	switch {
	case sqm > maxTypicalSqm:
		return []string{fmt.Sprintf("usædvanligt stort areal (%d m2), estimatet er vejledende", sqm)}
	case sqm > 0 && sqm < minTypicalSqm:
		return []string{fmt.Sprintf("meget lille areal (%d m2), minimumsbesøget sætter prisen", sqm)}
	}
	return nil
}

// clampHours rounds up to the nearest half hour and enforces the
// minimum billable visit.
func (c *Calculator) clampHours(hours float64) float64 {
	rounded := math.Ceil(hours*2) / 2
	if rounded < c.cfg.MinHours {
		return c.cfg.MinHours
	}
	return rounded
}

func roundKr(amount float64) float64 {
	return math.Round(amount)
}
