package inject

import (
	"fmt"
	"strings"

	"github.com/a-peyrard/godi-datasource/set"
)

// Tracker records the bindings being resolved, to report cycles instead of looping forever.
type Tracker struct {
	visited set.Set[slot]
	stack   []slot
}

func NewTracker() *Tracker {
	return &Tracker{
		visited: set.New[slot](),
		stack:   make([]slot, 0),
	}
}

func (tracker *Tracker) Push(id slot) error {
	if tracker.visited.Contains(id) {
		cycle := []slot{id}
		for i := len(tracker.stack) - 1; i >= 0; i-- {
			cycle = append(cycle, tracker.stack[i])
			if tracker.stack[i] == id {
				break
			}
		}

		return fmt.Errorf("cycle found:\n%s", formatCycle(cycle))
	}
	tracker.visited.Add(id)
	tracker.stack = append(tracker.stack, id)

	return nil
}

func (tracker *Tracker) Pop() slot {
	if len(tracker.stack) == 0 {
		panic("tracker: pop from empty stack")
	}
	id := tracker.stack[len(tracker.stack)-1]
	tracker.stack = tracker.stack[:len(tracker.stack)-1]
	tracker.visited.Remove(id)

	return id
}

func formatCycle(cycle []slot) string {
	var b strings.Builder
	depth := 0
	for i := len(cycle) - 1; i >= 0; i-- {
		b.WriteString(strings.Repeat("\t", depth))
		if i != len(cycle)-1 {
			b.WriteString(" -> ")
		}
		b.WriteString(cycle[i].String())
		b.WriteString("\n")
		depth++
	}
	return b.String()
}
