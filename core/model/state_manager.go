// Package model provides the training lifecycle state machine and the
// versioned, checksummed record used to persist trained models.
package model

import (
	"fmt"
	"sync"

	"github.com/YuminosukeSato/linreg/pkg/errors"
)

// TrainingState is a step of the training lifecycle.
type TrainingState int

const (
	// StateInitialized is the state of a trainer before Run.
	StateInitialized TrainingState = iota
	// StateValidating covers configuration checks, the train/validation split
	// and scaler fitting.
	StateValidating
	// StateIterating is the epoch loop.
	StateIterating
	// StateConverged means the loss delta fell below the threshold.
	StateConverged
	// StateMaxEpochsReached means the epoch budget ran out first.
	StateMaxEpochsReached
	// StateAborted is terminal: no model is produced.
	StateAborted
	// StateFinalized means a model was produced.
	StateFinalized
)

var stateNames = map[TrainingState]string{
	StateInitialized:      "Initialized",
	StateValidating:       "Validating",
	StateIterating:        "Iterating",
	StateConverged:        "Converged",
	StateMaxEpochsReached: "MaxEpochsReached",
	StateAborted:          "Aborted",
	StateFinalized:        "Finalized",
}

func (s TrainingState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TrainingState(%d)", int(s))
}

// IsTerminal reports whether no further transition is possible.
func (s TrainingState) IsTerminal() bool {
	return s == StateAborted || s == StateFinalized
}

var transitions = map[TrainingState][]TrainingState{
	StateInitialized:      {StateValidating},
	StateValidating:       {StateIterating, StateAborted},
	StateIterating:        {StateConverged, StateMaxEpochsReached, StateAborted},
	StateConverged:        {StateFinalized},
	StateMaxEpochsReached: {StateFinalized},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to TrainingState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateManager tracks the lifecycle of one training run in a thread-safe
// manner, so that the state can be observed while Run is in progress.
type StateManager struct {
	mu      sync.RWMutex
	state   TrainingState
	history []TrainingState
}

// NewStateManager creates a StateManager in StateInitialized.
func NewStateManager() *StateManager {
	return &StateManager{history: []TrainingState{StateInitialized}}
}

// State returns the current state.
func (s *StateManager) State() TrainingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Transition moves to the given state. Illegal transitions are programming
// errors and are reported as a ValueError without changing the state.
func (s *StateManager) Transition(to TrainingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !CanTransition(s.state, to) {
		return errors.NewValueError("StateManager.Transition",
			fmt.Sprintf("illegal transition %s -> %s", s.state, to))
	}
	s.state = to
	s.history = append(s.history, to)
	return nil
}

// Abort moves to StateAborted if the current state allows it and reports
// whether it did.
func (s *StateManager) Abort() bool {
	return s.Transition(StateAborted) == nil
}

// History returns every state visited since the last reset, in order.
func (s *StateManager) History() []TrainingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TrainingState(nil), s.history...)
}

// Reset returns to StateInitialized and clears the history.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateInitialized
	s.history = []TrainingState{StateInitialized}
}
