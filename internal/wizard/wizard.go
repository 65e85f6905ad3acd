// Package wizard implements the game template wizard: a fixed, strictly
// linear sequence of steps that a caller walks through one turn at a time.
//
// The machine is stateless. Each call receives the current step and the
// caller's accumulated choices and returns the message for that step plus the
// step to submit next. Persisting choices between turns is the caller's job.
package wizard

import (
	"errors"
	"fmt"

	"github.com/robloxmcp/studio-assist/internal/nlcmd"
	"github.com/robloxmcp/studio-assist/internal/templates"
)

// Step names a position in the wizard.
type Step string

const (
	StepStart    Step = "start"
	StepGenre    Step = "genre"
	StepFeatures Step = "features"
	StepStyle    Step = "style"
	StepGenerate Step = "generate"
	// StepComplete is terminal: advancing from it yields StepComplete again.
	StepComplete Step = "complete"
)

// sequence is the order steps are visited in. StepComplete follows the last.
var sequence = []Step{StepStart, StepGenre, StepFeatures, StepStyle, StepGenerate}

// ErrUnknownStep is returned by Run for any step without a message, which
// includes StepComplete and every value outside the sequence.
var ErrUnknownStep = errors.New("unknown wizard step")

// Valid reports whether s is one of the runnable steps.
func (s Step) Valid() bool {
	return indexOf(s) >= 0
}

func indexOf(s Step) int {
	for i, step := range sequence {
		if step == s {
			return i
		}
	}
	return -1
}

// Next returns the step after s. StepGenerate and StepComplete advance to
// StepComplete. A value outside the sequence restarts at StepStart; Run
// rejects such values before they get this far.
func Next(s Step) Step {
	if s == StepComplete {
		return StepComplete
	}
	i := indexOf(s)
	if i+1 < len(sequence) {
		return sequence[i+1]
	}
	return StepComplete
}

// State is the result of running one wizard step.
type State struct {
	CurrentStep     Step           `json:"currentStep"`
	Message         string         `json:"message"`
	PreviousChoices map[string]any `json:"previousChoices"`
	NextStep        Step           `json:"nextStep"`
}

// Machine renders wizard steps from a template store.
type Machine struct {
	templates *templates.Store
}

// New returns a Machine backed by store, or by the embedded catalog when
// store is nil.
func New(store *templates.Store) *Machine {
	if store == nil {
		store = templates.Default()
	}
	return &Machine{templates: store}
}

// Run returns the localised message for step along with the next step.
// previousChoices is returned as-is; nil becomes an empty map.
func (m *Machine) Run(step Step, previousChoices map[string]any, lang nlcmd.Language) (State, error) {
	if !step.Valid() {
		return State{}, fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	msg, err := m.templates.Text("wizard", string(step), lang)
	if err != nil {
		return State{}, fmt.Errorf("wizard step %q: %w", step, err)
	}
	if previousChoices == nil {
		previousChoices = map[string]any{}
	}
	return State{
		CurrentStep:     step,
		Message:         msg,
		PreviousChoices: previousChoices,
		NextStep:        Next(step),
	}, nil
}
