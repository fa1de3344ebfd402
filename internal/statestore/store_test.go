package statestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketsync/internal/domain"
)

var t0 = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestComputeHash_OrderIndependent(t *testing.T) {
	a := map[string]any{"market": "0xabc", "threshold": 15, "nested": map[string]any{"b": 1, "a": 2}}
	b := map[string]any{"nested": map[string]any{"a": 2, "b": 1}, "threshold": 15, "market": "0xabc"}

	ha, err := ComputeHash(a)
	require.NoError(t, err)
	hb, err := ComputeHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, HashLength)

	hc, err := ComputeHash(map[string]any{"market": "0xabc", "threshold": 16, "nested": map[string]any{"b": 1, "a": 2}})
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestComputeHash_StructMatchesMap(t *testing.T) {
	type cfg struct {
		Threshold float64 `json:"threshold"`
		Market    string  `json:"market"`
	}
	hs, err := ComputeHash(cfg{Threshold: 15.5, Market: "m"})
	require.NoError(t, err)
	hm, err := ComputeHash(map[string]any{"market": "m", "threshold": 15.5})
	require.NoError(t, err)
	assert.Equal(t, hs, hm)

	canon, err := CanonicalJSON(cfg{Threshold: 15.5, Market: "m"})
	require.NoError(t, err)
	assert.Equal(t, `{"market":"m","threshold":15.5}`, string(canon))

	_, err = ComputeHash(func() {})
	assert.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("state", "autopilot-0123456789abcdef.json"), DefaultPath("state", "autopilot", "0123456789abcdef"))
}

func TestLoad_MissingFileIsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.json")
	st, diags := Load(path, "h1", "autopilot", t0)
	assert.Empty(t, diags)
	assert.Equal(t, "h1", st.StrategyHash)
	assert.Equal(t, "autopilot", st.Kind)
	assert.Equal(t, domain.StateSchemaVersion, st.SchemaVersion)
	assert.Equal(t, "2026-03-14", st.LastResetDay)
	assert.NotNil(t, st.IdempotencyKeys)
	assert.NotNil(t, st.Alerts)
	assert.Nil(t, st.LastTickAt)
}

func TestLoad_CorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	st, diags := Load(path, "h1", "mirror", t0)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "corrupt")
	assert.Equal(t, int64(0), st.TickCount)
	assert.Equal(t, "mirror", st.Kind)
}

func TestLoad_PartialDocumentIsPopulated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"strategyHash":"old","tickCount":7,"idempotencyKeys":null}`), 0o644))

	st, diags := Load(path, "new", "autopilot", t0)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "does not match")
	assert.Equal(t, "new", st.StrategyHash)
	assert.Equal(t, int64(7), st.TickCount)
	assert.Equal(t, []string{}, st.IdempotencyKeys)
	assert.Equal(t, []domain.Alert{}, st.Alerts)
	assert.Equal(t, t0, st.StartedAt)
	assert.Equal(t, "autopilot", st.Kind)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	st := NewState("h1", "autopilot", t0)
	tick := t0.Add(time.Minute)
	st.LastTickAt = &tick
	st.TickCount = 3
	st.DailySpendUsdc = 12.5
	st.IdempotencyKeys = []string{"k1", "k2"}
	st.LastExecution = &domain.ActionRecord{ID: "a1", Status: domain.ActionSimulated, AmountUsdc: 12.5}

	require.NoError(t, Save(path, st))

	got, diags := Load(path, "h1", "autopilot", t0.Add(time.Hour))
	assert.Empty(t, diags)
	assert.Equal(t, st, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestSave_ConcurrentWritersNeverTear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st := NewState("h1", "autopilot", t0)
			st.TickCount = int64(i)
			st.IdempotencyKeys = []string{strings.Repeat(fmt.Sprint(i), 200)}
			errs <- Save(path, st)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var st domain.StrategyState
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Len(t, st.IdempotencyKeys, 1)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSave_FailsWhenDirIsAFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := Save(filepath.Join(blocker, "state.json"), NewState("h", "k", t0))
	assert.Error(t, err)
}

func TestTempName_Unique(t *testing.T) {
	a := tempName("state.json")
	b := tempName("state.json")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, ".state.json."))
	assert.True(t, strings.HasSuffix(a, ".tmp"))
	assert.Contains(t, a, fmt.Sprintf(".%d.", os.Getpid()))
}
