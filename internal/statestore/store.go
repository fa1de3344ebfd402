package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

// DayLayout formats the UTC day stamp used for daily counter resets.
const DayLayout = "2006-01-02"

// UTCDay returns t's UTC calendar day.
func UTCDay(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// NewState returns a fresh, fully populated document.
func NewState(hash, kind string, now time.Time) *domain.StrategyState {
	return &domain.StrategyState{
		SchemaVersion:   domain.StateSchemaVersion,
		StrategyHash:    hash,
		Kind:            kind,
		StartedAt:       now.UTC(),
		LastResetDay:    UTCDay(now),
		IdempotencyKeys: []string{},
		Alerts:          []domain.Alert{},
	}
}

// Load reads the state at path. It never fails: a missing file yields a fresh
// document, and an unreadable or corrupt one yields a fresh document plus a
// diagnostic. The returned document is always fully populated.
func Load(path, hash, kind string, now time.Time) (*domain.StrategyState, []string) {
	var diags []string

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			diags = append(diags, fmt.Sprintf("state file unreadable, starting fresh: %v", err))
		}
		return NewState(hash, kind, now), diags
	}

	var st domain.StrategyState
	if err := json.Unmarshal(data, &st); err != nil {
		diags = append(diags, fmt.Sprintf("state file corrupt, starting fresh: %v", err))
		return NewState(hash, kind, now), diags
	}

	if st.StrategyHash != "" && st.StrategyHash != hash {
		diags = append(diags, fmt.Sprintf("state file hash %s does not match strategy hash %s; adopting %s", st.StrategyHash, hash, hash))
	}
	st.StrategyHash = hash
	if st.Kind == "" {
		st.Kind = kind
	}
	if st.SchemaVersion == 0 {
		st.SchemaVersion = domain.StateSchemaVersion
	}
	if st.StartedAt.IsZero() {
		st.StartedAt = now.UTC()
	}
	if st.IdempotencyKeys == nil {
		st.IdempotencyKeys = []string{}
	}
	if st.Alerts == nil {
		st.Alerts = []domain.Alert{}
	}
	if st.TickCount < 0 {
		st.TickCount = 0
	}
	if st.TradesToday < 0 {
		st.TradesToday = 0
	}
	return &st, diags
}

// Save writes state to path atomically. The payload goes to a temp file in
// the same directory whose name carries the pid, a nanosecond timestamp and a
// random suffix, is fsynced, then renamed over path.
func Save(path string, state *domain.StrategyState) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("statestore: save: create dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("statestore: save: marshal: %w", err)
	}
	data = append(data, '\n')

	tmp := filepath.Join(dir, tempName(filepath.Base(path)))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("statestore: save: create temp: %w", err)
	}

	if err := writeAndSync(f, data); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("statestore: save: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("statestore: save: rename: %w", err)
	}
	return nil
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	return nil
}

func tempName(base string) string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf(".%s.%d.%d.%s.tmp", base, os.Getpid(), time.Now().UnixNano(), suffix)
}
