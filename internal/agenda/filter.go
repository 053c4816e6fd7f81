package agenda

import (
	"sort"

	"github.com/daladno/upcoming/internal/domain"
)

// FilterAndSort keeps the events whose span touches display and orders
// them by start. Equal starts keep their input order.
func FilterAndSort(events []domain.CanonicalEvent, display domain.AbsoluteInterval) []domain.CanonicalEvent {
	kept := make([]domain.CanonicalEvent, 0, len(events))
	for _, ev := range events {
		if display.Intersects(ev.Start, ev.End) {
			kept = append(kept, ev)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Start.Before(kept[j].Start)
	})
	return kept
}
