package calibration

import (
	"errors"
	"sync"

	"github.com/evolab/calgo/internal/configuration"
	"github.com/evolab/calgo/internal/ui"
	"github.com/google/uuid"
	"github.com/qdm12/reprint"
)

type State string

const (
	StateNotStarted    State = "not_started"
	StateRunning       State = "running"
	StateAwaitingInput State = "awaiting_input"
	StateCompleted     State = "completed"
	StateAborted       State = "aborted"
)

// Committer receives one sensor's finished calibration data when a
// procedure completes. The commit must replace the sensor's current
// calibration atomically.
type Committer interface {
	Commit(sensorId string, data *Data) error
}

// Status is the caller facing view of a procedure.
type Status struct {
	Id         string `json:"id"`
	TemplateId string `json:"templateId"`
	State      State  `json:"state"`
	Cursor     int    `json:"cursor"`
	TotalSteps int    `json:"totalSteps"`
	Prompt     string `json:"prompt,omitempty"`
}

// ProcedureState is the serializable snapshot of a procedure. It is the
// sole carrier of "where we are": restoring it into a fresh process
// continues execution from the persisted cursor with no replay of
// completed steps.
type ProcedureState struct {
	Id         string            `json:"id"`
	TemplateId string            `json:"templateId"`
	SensorIds  []string          `json:"sensorIds"`
	Steps      []*Step           `json:"steps"`
	Cursor     int               `json:"cursor"`
	State      State             `json:"state"`
	Context    map[string]string `json:"context"`
	Data       *Data             `json:"data"`
}

// Procedure is a suspendable calibration state machine. It is advanced
// cooperatively by whichever call currently holds it; a step either
// completes synchronously or the procedure suspends at the step boundary
// and returns immediately.
type Procedure struct {
	mu sync.Mutex

	id         string
	templateId string
	sensorIds  []string
	steps      []*Step
	cursor     int
	state      State
	context    map[string]string
	data       *Data
	strategy   FitStrategy
}

func NewProcedure(template configuration.ProcedureConfig, sensorIds []string) *Procedure {
	return &Procedure{
		id:         uuid.New().String(),
		templateId: template.ID,
		sensorIds:  sensorIds,
		steps:      flattenSteps(template.Steps, sensorIds),
		cursor:     0,
		state:      StateNotStarted,
		context:    map[string]string{},
		data:       NewData(),
		strategy:   LinearFit{},
	}
}

// flattenSteps expands the authored template over the selected sensor set:
// global steps appear exactly once, sensor scoped steps once per selected
// sensor in selection order, at the position the template occupied.
// Flattening at creation time makes the total step count exact.
func flattenSteps(templates []configuration.StepConfig, sensorIds []string) []*Step {
	steps := make([]*Step, 0, len(templates))
	ordinal := 0
	for _, template := range templates {
		if template.Scope == configuration.StepScopeGlobal {
			steps = append(steps, &Step{
				Ordinal: ordinal,
				Kind:    StepKind(template.Kind),
				Scope:   ScopeGlobal,
				Point:   template.Point,
				Prompt:  template.Prompt,
				State:   StepPending,
			})
			ordinal++
			continue
		}

		for _, sensorId := range sensorIds {
			steps = append(steps, &Step{
				Ordinal:  ordinal,
				Kind:     StepKind(template.Kind),
				Scope:    ScopeSensor,
				SensorId: sensorId,
				Point:    template.Point,
				Prompt:   template.Prompt,
				State:    StepPending,
			})
			ordinal++
		}
	}
	return steps
}

func (p *Procedure) Id() string {
	return p.id
}

// Sensors returns the target sensor set of this procedure.
func (p *Procedure) Sensors() []string {
	return p.sensorIds
}

// Active reports whether the procedure still holds its target sensors.
func (p *Procedure) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StateNotStarted || p.state == StateRunning || p.state == StateAwaitingInput
}

// Advance eagerly executes steps starting at the cursor until the sequence
// is exhausted, a step requires input, or a hardware read fails. It never
// blocks waiting for a human.
func (p *Procedure) Advance(reader SensorReader, committer Committer) (Status, error) {
	return p.advance(reader, committer, nil)
}

// ProvideInput offers a user supplied value or acknowledgement to the step
// currently awaiting it, then continues normal advancement.
func (p *Procedure) ProvideInput(reader SensorReader, committer Committer, input Input) (Status, error) {
	p.mu.Lock()
	state := p.state
	status := p.statusLocked()
	p.mu.Unlock()

	if state == StateCompleted || state == StateAborted {
		return status, ErrProcedureTerminal
	}
	if state != StateAwaitingInput {
		return status, ErrNoInputExpected
	}

	return p.advance(reader, committer, &input)
}

func (p *Procedure) advance(reader SensorReader, committer Committer, input *Input) (Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateCompleted || p.state == StateAborted {
		return p.statusLocked(), ErrProcedureTerminal
	}

	p.state = StateRunning

	for p.cursor < len(p.steps) {
		step := p.steps[p.cursor]

		done, err := step.Advance(p.data, p.context, reader, input)
		// input is consumed by the step it was offered to
		input = nil

		if err != nil {
			// retryable, the cursor stays on the failing step
			return p.statusLocked(), err
		}
		if !done {
			p.state = StateAwaitingInput
			return p.statusLocked(), nil
		}
		p.cursor++
	}

	return p.completeLocked(committer)
}

// completeLocked fits each sensor's point subset and commits it. A fit that
// cannot be computed (insufficient or degenerate data) is not fatal: the
// subset is committed with its points and no fit, preserving the lenient
// partial-data behavior.
func (p *Procedure) completeLocked(committer Committer) (Status, error) {
	for _, sensorId := range p.sensorIds {
		subset := p.data.SensorSubset(sensorId)

		_, err := subset.TryFit(p.strategy)
		if err != nil {
			if errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrDegenerateInput) {
				ui.Warning("Procedure %s: no fit for sensor %s: %v", p.id, sensorId, err)
			} else {
				return p.statusLocked(), err
			}
		}

		if err := committer.Commit(sensorId, subset); err != nil {
			return p.statusLocked(), err
		}
	}

	p.state = StateCompleted
	return p.statusLocked(), nil
}

// Abort moves the procedure to its aborted terminal state. No commit ever
// happens for an aborted procedure; its persisted state is retained for
// audit only.
func (p *Procedure) Abort() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateCompleted || p.state == StateAborted {
		return p.statusLocked()
	}
	p.state = StateAborted
	return p.statusLocked()
}

func (p *Procedure) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLocked()
}

func (p *Procedure) statusLocked() Status {
	status := Status{
		Id:         p.id,
		TemplateId: p.templateId,
		State:      p.state,
		Cursor:     p.cursor,
		TotalSteps: len(p.steps),
	}
	if p.state == StateAwaitingInput && p.cursor < len(p.steps) {
		status.Prompt = p.steps[p.cursor].PromptText()
	}
	return status
}

// Snapshot returns a deep copy of the full procedure state, safe to
// serialize while the procedure keeps running.
func (p *Procedure) Snapshot() ProcedureState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ProcedureState{
		Id:         p.id,
		TemplateId: p.templateId,
		SensorIds:  append([]string{}, p.sensorIds...),
		Steps:      reprint.This(p.steps).([]*Step),
		Cursor:     p.cursor,
		State:      p.state,
		Context:    reprint.This(p.context).(map[string]string),
		Data:       reprint.This(p.data).(*Data),
	}
}

// RestoreProcedure reconstructs a procedure from a persisted snapshot.
// Advancement simply continues from the restored cursor.
func RestoreProcedure(state ProcedureState) *Procedure {
	context := state.Context
	if context == nil {
		context = map[string]string{}
	}
	data := state.Data
	if data == nil {
		data = NewData()
	}
	if data.Points == nil {
		data.Points = map[string]*Point{}
	}

	return &Procedure{
		id:         state.Id,
		templateId: state.TemplateId,
		sensorIds:  state.SensorIds,
		steps:      state.Steps,
		cursor:     state.Cursor,
		state:      state.State,
		context:    context,
		data:       data,
		strategy:   LinearFit{},
	}
}
