// Package scheduling holds the pure slot computation for the booking
// engine. Nothing here touches storage; callers load the weekly rule and
// the date's exceptions and receive candidate windows back.
package scheduling

import (
	"sort"
	"time"

	"github.com/datatouch/booking-api/internal/models"
)

type window struct {
	start models.TimeOfDay
	end   models.TimeOfDay
}

// BuildSlots expands a card's weekly rule plus the date-specific exceptions
// into bookable slots of durationMinutes.
//
// A blocked exception with no start/end removes the whole day. ExtraHours
// exceptions contribute windows alongside the rule; blocked sub-ranges drop
// any slot they overlap. Slots are stepped by the duration itself and the
// result is ordered by start time. Times are local wall-clock; date and
// timezone handling belong to the caller.
func BuildSlots(rule *models.AvailabilityRule, exceptions []models.AvailabilityException, durationMinutes int) []models.TimeSlot {
	if durationMinutes <= 0 {
		return nil
	}

	for _, ex := range exceptions {
		if ex.BlocksWholeDay() {
			return nil
		}
	}

	var windows []window
	if rule != nil && rule.Active {
		windows = append(windows, window{start: rule.StartTime, end: rule.EndTime})
	}
	for _, ex := range exceptions {
		if ex.Kind == models.ExceptionExtraHours && ex.StartTime != nil && ex.EndTime != nil {
			windows = append(windows, window{start: *ex.StartTime, end: *ex.EndTime})
		}
	}

	var blocked []window
	for _, ex := range exceptions {
		if ex.Kind == models.ExceptionBlocked && ex.StartTime != nil && ex.EndTime != nil {
			blocked = append(blocked, window{start: *ex.StartTime, end: *ex.EndTime})
		}
	}

	var slots []models.TimeSlot
	for _, w := range windows {
		for start := w.start; start.Add(durationMinutes) <= w.end; start = start.Add(durationMinutes) {
			end := start.Add(durationMinutes)
			if overlapsAny(start, end, blocked) {
				continue
			}
			slots = append(slots, models.TimeSlot{StartTime: start, EndTime: end, Available: true})
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime < slots[j].StartTime })
	return slots
}

func overlapsAny(start, end models.TimeOfDay, blocked []window) bool {
	for _, b := range blocked {
		// Half-open intervals: [start,end) overlaps [b.start,b.end) iff
		// start < b.end && b.start < end.
		if start < b.end && b.start < end {
			return true
		}
	}
	return false
}

// Overlaps reports whether the half-open instants [aStart,aEnd) and
// [bStart,bEnd) intersect. It is the single overlap definition shared by
// slot filtering and conflict checks.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
