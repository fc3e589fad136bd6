package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/evolab/calgo/internal/calibration"
	"github.com/evolab/calgo/internal/ui"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketProcedures   = "procedures"
	BucketCalibrations = "calibrations"
)

type Persistence interface {
	Init() error

	SaveProcedureState(state calibration.ProcedureState) error
	LoadProcedureState(id string) (*calibration.ProcedureState, error)
	ListProcedureStates() ([]calibration.ProcedureState, error)
	DeleteProcedureState(id string) error

	SaveCalibration(sensorId string, data *calibration.Data) error
	LoadCalibration(sensorId string) (*calibration.Data, error)
	LoadCalibrations() (map[string]*calibration.Data, error)
	DeleteCalibration(sensorId string) error
}

type persistence struct {
	dbPath string
}

func NewPersistence(dbPath string) Persistence {
	p := &persistence{
		dbPath: dbPath,
	}
	return p
}

func (p persistence) Init() (err error) {
	// get parent path of dbPath
	parentDir := filepath.Dir(p.dbPath)
	_, err = os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		// create directory
		ui.Info("Creating directory for db: %s", parentDir)
		err = os.MkdirAll(parentDir, 0755)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p persistence) openPersistence() (db *bolt.DB, err error) {
	db, err = bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 1 * time.Minute})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// SaveProcedureState saves the given procedure snapshot, replacing any
// previous snapshot of the same procedure.
func (p persistence) SaveProcedureState(state calibration.ProcedureState) (err error) {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketProcedures))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		err = b.Put([]byte(state.Id), data)
		return err
	})
}

// LoadProcedureState loads the snapshot of the given procedure from
// persistence. Returns nil if no snapshot exists.
func (p persistence) LoadProcedureState(id string) (*calibration.ProcedureState, error) {
	db, err := p.openPersistence()
	if err != nil {
		return nil, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	var state *calibration.ProcedureState
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketProcedures))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(id))
		if v == nil {
			return nil
		}

		decoded := calibration.ProcedureState{}
		if err := json.Unmarshal(v, &decoded); err != nil {
			ui.Warning("Unable to unmarshal saved procedure state for %s: %v", id, err)
			return nil
		}
		state = &decoded
		return nil
	})

	return state, err
}

// ListProcedureStates loads all persisted procedure snapshots, including
// completed and aborted ones kept for audit.
func (p persistence) ListProcedureStates() ([]calibration.ProcedureState, error) {
	db, err := p.openPersistence()
	if err != nil {
		return nil, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	var states []calibration.ProcedureState
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketProcedures))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			state := calibration.ProcedureState{}
			if err := json.Unmarshal(v, &state); err != nil {
				ui.Warning("Unable to unmarshal saved procedure state for %s: %v", string(k), err)
				return nil
			}
			states = append(states, state)
			return nil
		})
	})

	return states, err
}

func (p persistence) DeleteProcedureState(id string) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketProcedures))
		if b == nil {
			// no procedure bucket yet
			return nil
		}
		v := b.Get([]byte(id))
		if v == nil {
			// no data for given key
			return nil
		}

		return b.Delete([]byte(id))
	})
}

// SaveCalibration saves the committed calibration of the given sensor to
// persistence, so it survives process restarts.
func (p persistence) SaveCalibration(sensorId string, data *calibration.Data) (err error) {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketCalibrations))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		err = b.Put([]byte(sensorId), payload)
		return err
	})
}

// LoadCalibration loads the committed calibration of the given sensor from
// persistence.
func (p persistence) LoadCalibration(sensorId string) (*calibration.Data, error) {
	db, err := p.openPersistence()
	if err != nil {
		return nil, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	var data *calibration.Data
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketCalibrations))
		if b == nil {
			return os.ErrNotExist
		}
		v := b.Get([]byte(sensorId))
		if v == nil {
			return os.ErrNotExist
		}

		decoded := calibration.Data{}
		if err := json.Unmarshal(v, &decoded); err != nil {
			ui.Warning("Unable to unmarshal saved calibration for %s: %v", sensorId, err)
			return os.ErrNotExist
		}
		data = &decoded
		return nil
	})

	return data, err
}

// LoadCalibrations loads the committed calibrations of all sensors.
func (p persistence) LoadCalibrations() (map[string]*calibration.Data, error) {
	db, err := p.openPersistence()
	if err != nil {
		return nil, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	result := map[string]*calibration.Data{}
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketCalibrations))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			decoded := calibration.Data{}
			if err := json.Unmarshal(v, &decoded); err != nil {
				ui.Warning("Unable to unmarshal saved calibration for %s: %v", string(k), err)
				return nil
			}
			result[string(k)] = &decoded
			return nil
		})
	})

	return result, err
}

func (p persistence) DeleteCalibration(sensorId string) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketCalibrations))
		if b == nil {
			// no calibration bucket yet
			return nil
		}
		v := b.Get([]byte(sensorId))
		if v == nil {
			// no data for given key
			return nil
		}

		return b.Delete([]byte(sensorId))
	})
}
