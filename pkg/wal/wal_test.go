package wal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Op string `json:"op"`
	N  int    `json:"n"`
}

func replayAll(t *testing.T, w *WAL) []record {
	t.Helper()
	var out []record
	err := w.Replay(func(raw json.RawMessage) error {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestWAL_WriteAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(record{Op: "open", N: 1}))
	require.NoError(t, w.Write(record{Op: "commit", N: 2}))
	require.NoError(t, w.Close())

	w, err = Open(path)
	require.NoError(t, err)
	defer w.Close()

	got := replayAll(t, w)
	assert.Equal(t, []record{{"open", 1}, {"commit", 2}}, got)

	// Replay 之後仍可繼續追加
	require.NoError(t, w.Write(record{Op: "commit", N: 3}))
	assert.Len(t, replayAll(t, w), 3)
}

func TestWAL_TornTailIsDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	content := `{"op":"open","n":1}` + "\n" + `{"op":"comm`
	require.NoError(t, os.WriteFile(path, []byte(content), FileModePrivate))

	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	got := replayAll(t, w)
	assert.Equal(t, []record{{"open", 1}}, got)
	assert.Equal(t, int64(len(`{"op":"open","n":1}`)+1), w.Size())

	require.NoError(t, w.Write(record{Op: "commit", N: 2}))
	assert.Equal(t, []record{{"open", 1}, {"commit", 2}}, replayAll(t, w))
}

func TestWAL_CorruptedMiddle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	content := `{"op":"open","n":1}` + "\n" + `garbage` + "\n" + `{"op":"commit","n":2}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), FileModePrivate))

	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	err = w.Replay(func(json.RawMessage) error { return nil })
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestWAL_WriteAfterClose(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "ledger.wal"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Error(t, w.Write(record{Op: "open"}))
}
