package model

import "fmt"

// Status is the lifecycle state of an asset.
// Keep these values stable; they are intended for CSV output.
type Status string

const (
	StatusConsidered    Status = "considered"
	StatusAnnounced     Status = "announced"
	StatusConstruction  Status = "construction"
	StatusOperating     Status = "operating"
	StatusSwitching     Status = "operating switching technology"
	StatusPreRetirement Status = "operating pre-retirement"
	StatusClosed        Status = "closed"
	StatusDiscarded     Status = "discarded"
)

// transitions is the lifecycle graph. Closed and discarded are terminal.
var transitions = map[Status][]Status{
	StatusConsidered:    {StatusAnnounced, StatusDiscarded},
	StatusAnnounced:     {StatusConstruction, StatusDiscarded},
	StatusConstruction:  {StatusOperating},
	StatusOperating:     {StatusSwitching, StatusPreRetirement, StatusClosed},
	StatusSwitching:     {StatusOperating, StatusClosed},
	StatusPreRetirement: {StatusClosed},
}

// CanTransition reports whether the lifecycle allows moving from one status
// to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Active statuses produce and appear on the cost curve.
func (s Status) Active() bool {
	switch s {
	case StatusOperating, StatusSwitching, StatusPreRetirement:
		return true
	}
	return false
}

// Prospective statuses belong to business opportunities that are not built yet.
func (s Status) Prospective() bool {
	return s == StatusConsidered || s == StatusAnnounced
}

func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusDiscarded
}

func validateTransition(id fmt.Stringer, from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("asset %s: cannot move from %q to %q", id, from, to)
	}
	return nil
}
