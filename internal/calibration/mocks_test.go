package calibration

import (
	"sync"
)

type mockReader struct {
	values map[string]float64
	err    error
	reads  []string
}

func (r *mockReader) ReadRaw(sensorId string) (float64, error) {
	r.reads = append(r.reads, sensorId)
	if r.err != nil {
		return 0, r.err
	}
	return r.values[sensorId], nil
}

type mockCommitter struct {
	mu        sync.Mutex
	committed map[string]*Data
	err       error
}

func newMockCommitter() *mockCommitter {
	return &mockCommitter{
		committed: map[string]*Data{},
	}
}

func (c *mockCommitter) Commit(sensorId string, data *Data) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.committed[sensorId] = data
	return nil
}

type mockStore struct {
	mu     sync.Mutex
	states map[string]ProcedureState
	err    error
}

func newMockStore() *mockStore {
	return &mockStore{
		states: map[string]ProcedureState{},
	}
}

func (s *mockStore) SaveProcedureState(state ProcedureState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.states[state.Id] = state
	return nil
}

func (s *mockStore) LoadProcedureState(id string) (*ProcedureState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	state, ok := s.states[id]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (s *mockStore) ListProcedureStates() ([]ProcedureState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	states := make([]ProcedureState, 0, len(s.states))
	for _, state := range s.states {
		states = append(states, state)
	}
	return states, nil
}
