package llm

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptSourceDefault(t *testing.T) {
	src := NewPromptSource(slog.Default())
	assert.Equal(t, AnalysisPrompt, src.Prompt())
}

func TestPromptSourceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("custom estimator prompt"), 0644))

	src, err := NewPromptSourceFromFile(path, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "custom estimator prompt", src.Prompt())
}

func TestPromptSourceFromFileMissing(t *testing.T) {
	_, err := NewPromptSourceFromFile(filepath.Join(t.TempDir(), "nope.txt"), slog.Default())
	assert.Error(t, err)
}

func TestPromptSourceFromFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("   \n"), 0644))

	_, err := NewPromptSourceFromFile(path, slog.Default())
	assert.Error(t, err)
}

func TestPromptSourceWatchReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("first version"), 0644))

	src, err := NewPromptSourceFromFile(path, slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Watch(ctx) }()

	// Give the watcher a beat to register before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("second version"), 0644))

	assert.Eventually(t, func() bool {
		return src.Prompt() == "second version"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestPromptSourceWatchKeepsPromptOnEmptyWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("good prompt"), 0644))

	src, err := NewPromptSourceFromFile(path, slog.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = src.Watch(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))

	// The empty write must be ignored.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, "good prompt", src.Prompt())
}

func TestPromptSourceWatchWithoutFile(t *testing.T) {
	src := NewPromptSource(slog.Default())
	require.NoError(t, src.Watch(context.Background()))
}
