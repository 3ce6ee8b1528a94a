package compose

import (
	"context"
	"time"

	"renos/internal/config"
	"renos/pkg/models"
)

const (
	workdayStartHour = 8
	workdayEndHour   = 16

	// Travel and wrap-up time between visits.
	slotBuffer = time.Hour
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// BusyLookup reports existing bookings in a window, the way a calendar
// backend exposes its free/busy data.
type BusyLookup interface {
	Busy(ctx context.Context, from, to time.Time) ([]Interval, error)
}

// Scheduler finds open visit slots on business days within the
// configured horizon.
type Scheduler struct {
	busy BusyLookup
	cfg  config.ComposerConfig
}

func NewScheduler(cfg config.ComposerConfig, busy BusyLookup) *Scheduler {
	return &Scheduler{busy: busy, cfg: cfg}
}

func (s *Scheduler) FindSlots(ctx context.Context, from time.Time, duration time.Duration, count int) ([]models.BookingSlot, error) {
	if count <= 0 {
		count = 3
	}

	horizon := time.Duration(s.cfg.SlotHorizonDays) * 24 * time.Hour
	if horizon <= 0 {
		horizon = 14 * 24 * time.Hour
	}
	end := from.Add(horizon)

	var busy []Interval
	if s.busy != nil {
		var err error
		busy, err = s.busy.Busy(ctx, from, end)
		if err != nil {
			return nil, err
		}
	}

	var slots []models.BookingSlot

	// Start on the next day so a customer is never offered a same-day
	// visit.
	day := from.AddDate(0, 0, 1)
	for ; day.Before(end) && len(slots) < count; day = day.AddDate(0, 0, 1) {
		if !businessDay(day) {
			continue
		}

		cursor := time.Date(day.Year(), day.Month(), day.Day(), workdayStartHour, 0, 0, 0, day.Location())
		dayEnd := time.Date(day.Year(), day.Month(), day.Day(), workdayEndHour, 0, 0, 0, day.Location())

		for len(slots) < count {
			slotEnd := cursor.Add(duration)
			if slotEnd.After(dayEnd) {
				break
			}

			if conflict, ok := firstOverlap(busy, cursor, slotEnd); ok {
				cursor = conflict.End.Add(slotBuffer)
				continue
			}

			slots = append(slots, models.BookingSlot{Start: cursor, End: slotEnd})
			cursor = slotEnd.Add(slotBuffer)
		}
	}

	return slots, nil
}

func firstOverlap(busy []Interval, start, end time.Time) (Interval, bool) {
	for _, b := range busy {
		if start.Before(b.End) && b.Start.Before(end) {
			return b, true
		}
	}
	return Interval{}, false
}
