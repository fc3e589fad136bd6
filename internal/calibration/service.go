package calibration

import (
	"sync"

	"github.com/evolab/calgo/internal/configuration"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// Store persists procedure snapshots. Persistence failures are fatal to the
// current operation only: the procedure remains in its last successfully
// persisted state.
type Store interface {
	SaveProcedureState(state ProcedureState) error
	LoadProcedureState(id string) (*ProcedureState, error)
	ListProcedureStates() ([]ProcedureState, error)
}

// Service owns the live calibration procedures of one process. All
// procedure operations exposed to the transport layer go through it, so
// conflict checks and persistence happen in exactly one place.
type Service struct {
	templates map[string]configuration.ProcedureConfig
	reader    SensorReader
	committer Committer
	store     Store

	active cmap.ConcurrentMap[string, *Procedure]

	// serializes Start/Resume against each other so two procedures can
	// never grab the same sensor in parallel
	startMu sync.Mutex
}

func NewService(
	templates []configuration.ProcedureConfig,
	reader SensorReader,
	committer Committer,
	store Store,
) *Service {
	templateMap := map[string]configuration.ProcedureConfig{}
	for _, template := range templates {
		templateMap[template.ID] = template
	}

	return &Service{
		templates: templateMap,
		reader:    reader,
		committer: committer,
		store:     store,
		active:    cmap.New[*Procedure](),
	}
}

// Templates returns the procedure templates known to this service.
func (s *Service) Templates() []configuration.ProcedureConfig {
	templates := make([]configuration.ProcedureConfig, 0, len(s.templates))
	for _, template := range s.templates {
		templates = append(templates, template)
	}
	return templates
}

// Start creates a new procedure from the given template and sensor
// selection, persists it and registers it as active. At most one active
// procedure may hold a given sensor at a time.
func (s *Service) Start(templateId string, sensorIds []string) (Status, error) {
	template, ok := s.templates[templateId]
	if !ok {
		return Status{}, &TemplateNotFoundError{TemplateId: templateId}
	}

	s.startMu.Lock()
	defer s.startMu.Unlock()

	if err := s.checkConflicts(sensorIds); err != nil {
		return Status{}, err
	}

	procedure := NewProcedure(template, sensorIds)
	if err := s.store.SaveProcedureState(procedure.Snapshot()); err != nil {
		return Status{}, err
	}

	s.active.Set(procedure.Id(), procedure)
	return procedure.Status(), nil
}

func (s *Service) checkConflicts(sensorIds []string) error {
	for _, procedure := range s.active.Items() {
		if !procedure.Active() {
			continue
		}
		for _, held := range procedure.Sensors() {
			for _, requested := range sensorIds {
				if held == requested {
					return &ProcedureConflictError{
						SensorId:    requested,
						ProcedureId: procedure.Id(),
					}
				}
			}
		}
	}
	return nil
}

// Advance executes steps of the given procedure until it suspends,
// fails retryably or finishes.
func (s *Service) Advance(id string) (Status, error) {
	procedure, ok := s.active.Get(id)
	if !ok {
		return Status{}, &ProcedureNotFoundError{ProcedureId: id}
	}

	status, err := procedure.Advance(s.reader, s.committer)
	return s.finishCall(procedure, status, err)
}

// ProvideInput feeds a user supplied value or acknowledgement into the
// given procedure.
func (s *Service) ProvideInput(id string, input Input) (Status, error) {
	procedure, ok := s.active.Get(id)
	if !ok {
		return Status{}, &ProcedureNotFoundError{ProcedureId: id}
	}

	status, err := procedure.ProvideInput(s.reader, s.committer, input)
	return s.finishCall(procedure, status, err)
}

// Resume loads a persisted procedure into this process if it is not
// already live, then continues normal advancement from the restored
// cursor. Terminal procedures are not resumable.
func (s *Service) Resume(id string) (Status, error) {
	if procedure, ok := s.active.Get(id); ok {
		status, err := procedure.Advance(s.reader, s.committer)
		return s.finishCall(procedure, status, err)
	}

	s.startMu.Lock()
	state, err := s.store.LoadProcedureState(id)
	if err != nil {
		s.startMu.Unlock()
		return Status{}, err
	}
	if state == nil {
		s.startMu.Unlock()
		return Status{}, &ProcedureNotFoundError{ProcedureId: id}
	}
	if state.State == StateCompleted || state.State == StateAborted {
		s.startMu.Unlock()
		return statusFromState(*state), ErrProcedureTerminal
	}

	if err := s.checkConflicts(state.SensorIds); err != nil {
		s.startMu.Unlock()
		return Status{}, err
	}

	procedure := RestoreProcedure(*state)
	s.active.Set(procedure.Id(), procedure)
	s.startMu.Unlock()

	status, err := procedure.Advance(s.reader, s.committer)
	return s.finishCall(procedure, status, err)
}

// RestoreActive loads all non-terminal persisted procedures into the
// active registry without advancing them. Called once at daemon startup.
func (s *Service) RestoreActive() (int, error) {
	states, err := s.store.ListProcedureStates()
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, state := range states {
		if state.State == StateCompleted || state.State == StateAborted {
			continue
		}
		if s.checkConflicts(state.SensorIds) != nil {
			continue
		}
		s.active.Set(state.Id, RestoreProcedure(state))
		restored++
	}
	return restored, nil
}

// Abort cancels the given procedure. No commit occurs; the persisted state
// is retained for audit but cannot be resumed.
func (s *Service) Abort(id string) (Status, error) {
	if procedure, ok := s.active.Get(id); ok {
		status := procedure.Abort()
		if err := s.store.SaveProcedureState(procedure.Snapshot()); err != nil {
			return status, err
		}
		s.active.Remove(id)
		return status, nil
	}

	state, err := s.store.LoadProcedureState(id)
	if err != nil {
		return Status{}, err
	}
	if state == nil {
		return Status{}, &ProcedureNotFoundError{ProcedureId: id}
	}
	if state.State == StateCompleted || state.State == StateAborted {
		return statusFromState(*state), ErrProcedureTerminal
	}

	state.State = StateAborted
	if err := s.store.SaveProcedureState(*state); err != nil {
		return Status{}, err
	}
	return statusFromState(*state), nil
}

// Status reports the current state of a live or persisted procedure.
func (s *Service) Status(id string) (Status, error) {
	if procedure, ok := s.active.Get(id); ok {
		return procedure.Status(), nil
	}

	state, err := s.store.LoadProcedureState(id)
	if err != nil {
		return Status{}, err
	}
	if state == nil {
		return Status{}, &ProcedureNotFoundError{ProcedureId: id}
	}
	return statusFromState(*state), nil
}

// List returns the statuses of all procedures live in this process.
func (s *Service) List() []Status {
	statuses := make([]Status, 0, s.active.Count())
	for _, procedure := range s.active.Items() {
		statuses = append(statuses, procedure.Status())
	}
	return statuses
}

// finishCall persists the procedure after an advancement call and drops
// terminal procedures from the active registry so their sensors become
// available again.
func (s *Service) finishCall(procedure *Procedure, status Status, callErr error) (Status, error) {
	if err := s.store.SaveProcedureState(procedure.Snapshot()); err != nil {
		return status, err
	}

	if status.State == StateCompleted || status.State == StateAborted {
		s.active.Remove(procedure.Id())
	}

	return status, callErr
}

func statusFromState(state ProcedureState) Status {
	status := Status{
		Id:         state.Id,
		TemplateId: state.TemplateId,
		State:      state.State,
		Cursor:     state.Cursor,
		TotalSteps: len(state.Steps),
	}
	if state.State == StateAwaitingInput && state.Cursor < len(state.Steps) {
		status.Prompt = state.Steps[state.Cursor].PromptText()
	}
	return status
}
