package generator

import (
	"sort"

	"github.com/logflow/loggen/internal/model"
)

// Assemble orders events by timestamp. Ties keep emission order.
func Assemble(events []model.Event) []model.Event {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}
