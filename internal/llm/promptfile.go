package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// PromptSource hands out the current analysis system prompt. The built-in
// prompt can be overridden by a file, hot-reloaded on change, so the prompt
// can be tuned against a live instance without a restart.
type PromptSource struct {
	mu     sync.RWMutex
	prompt string
	path   string
	logger *slog.Logger
}

// NewPromptSource serves the built-in AnalysisPrompt.
func NewPromptSource(logger *slog.Logger) *PromptSource {
	return &PromptSource{prompt: AnalysisPrompt, logger: logger}
}

// NewPromptSourceFromFile serves the prompt found at path instead.
func NewPromptSourceFromFile(path string, logger *slog.Logger) (*PromptSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("prompt file %s is empty", path)
	}
	return &PromptSource{prompt: string(data), path: path, logger: logger}, nil
}

func (s *PromptSource) Prompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}

// Watch reloads the prompt file whenever it changes, until ctx is
// cancelled. Editors that replace the file on save emit Create rather than
// Write, so the watch covers the containing directory with events filtered
// by name. A source without a file returns immediately.
func (s *PromptSource) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create prompt watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			s.logger.Error("failed to close prompt watcher", "error", err)
		}
	}()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch prompt directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("prompt watcher error", "error", err)
		}
	}
}

func (s *PromptSource) reload() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Error("failed to reload prompt file, keeping previous prompt", "path", s.path, "error", err)
		return
	}
	// A save in progress can surface as a momentarily empty file.
	if strings.TrimSpace(string(data)) == "" {
		s.logger.Warn("prompt file reloaded empty, keeping previous prompt", "path", s.path)
		return
	}
	s.mu.Lock()
	s.prompt = string(data)
	s.mu.Unlock()
	s.logger.Info("prompt file reloaded", "path", s.path, "bytes", len(data))
}
