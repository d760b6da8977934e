package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const schemaVersion = 1

// file is the on-disk calibration record. Persistence is a convenience:
// a cached center survives restarts, but recalibration always remains
// available and correctness never depends on the cache.
type file struct {
	SchemaVersion int       `json:"schema_version"`
	CalibratedAt  time.Time `json:"calibrated_at"`
	State         State     `json:"state"`
}

// Save writes a validated state to path as JSON. Invalid states are not
// persisted.
func Save(path string, st State) error {
	if !st.Valid {
		return fmt.Errorf("calibration: refusing to persist invalid state")
	}

	data, err := json.MarshalIndent(file{
		SchemaVersion: schemaVersion,
		CalibratedAt:  time.Now(),
		State:         st,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("calibration: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("calibration: write %s: %w", path, err)
	}
	return nil
}

// Load reads a previously saved state. A missing file, an unknown schema,
// or centers outside the sane band all return an error so the caller
// falls back to a fresh calibration pass.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("calibration: read %s: %w", path, err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return State{}, fmt.Errorf("calibration: parse %s: %w", path, err)
	}
	if f.SchemaVersion != schemaVersion {
		return State{}, fmt.Errorf("calibration: %s has schema %d, want %d", path, f.SchemaVersion, schemaVersion)
	}

	st := f.State
	if !st.Valid ||
		st.CenterX < SaneMin || st.CenterX > SaneMax ||
		st.CenterY < SaneMin || st.CenterY > SaneMax {
		return State{}, fmt.Errorf("calibration: %s holds out-of-range centers (%d, %d)", path, st.CenterX, st.CenterY)
	}
	return st, nil
}
