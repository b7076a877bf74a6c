package publish

import (
	"fmt"

	"github.com/ardanlabs/storagecost/business/core/display"
)

// Strategy is one of the three ways data is put on chain.
type Strategy string

// Set of storage strategies.
const (
	Event Strategy = "event"
	Self  Strategy = "self"
	Child Strategy = "child"
)

// Strategies lists every strategy in display order.
var Strategies = []Strategy{Event, Self, Child}

// ParseStrategy converts a name into a strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case Event, Self, Child:
		return s, nil
	}
	return "", fmt.Errorf("unknown strategy %q", name)
}

// Source returns the display source that updates for this strategy are
// tagged with.
func (s Strategy) Source() display.Source {
	switch s {
	case Event:
		return display.EventEmit
	case Self:
		return display.SelfWrite
	default:
		return display.ChildWrite
	}
}
