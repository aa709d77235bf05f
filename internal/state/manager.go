package state

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const (
	stageFileName = "pipeline.stage"
	lockFileName  = ".lock"
)

// Manager owns the run lock and the persisted pipeline stage for one dataset
// output root. The lock guarantees that the check-then-invoke sequence on any
// output path is never raced by a second pxdflow instance.
type Manager struct {
	lock      *flock.Flock
	stagePath string
	logger    *slog.Logger
}

// NewManager creates the output root if needed and acquires its file lock.
// It returns an error if the lock is already held by another instance.
func NewManager(outputDir string, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create output directory %s: %w", outputDir, err)
	}

	lockPath := filepath.Join(outputDir, lockFileName)
	fileLock := flock.New(lockPath)

	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("could not acquire file lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("output directory %s is locked by another pxdflow instance", outputDir)
	}

	logger.Info("Acquired run lock.", "path", lockPath)

	return &Manager{
		lock:      fileLock,
		stagePath: filepath.Join(outputDir, stageFileName),
		logger:    logger,
	}, nil
}

// ReadStage reads the last persisted pipeline stage. It returns an empty
// string when no stage was ever recorded.
func (m *Manager) ReadStage() (string, error) {
	data, err := os.ReadFile(m.stagePath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("could not read stage file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteStage atomically records the pipeline stage currently executing.
func (m *Manager) WriteStage(stage string) error {
	tempFile, err := os.CreateTemp(filepath.Dir(m.stagePath), "stage-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp stage file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.WriteString(stage + "\n"); err != nil {
		return fmt.Errorf("failed to write to temp stage file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp stage file: %w", err)
	}

	if err := os.Rename(tempFile.Name(), m.stagePath); err != nil {
		return fmt.Errorf("failed to atomically move stage file: %w", err)
	}

	return nil
}

// Close releases the run lock. The lock file itself is left behind.
func (m *Manager) Close() {
	if err := m.lock.Unlock(); err != nil {
		m.logger.Error("Failed to release run lock.", "error", err)
	} else {
		m.logger.Info("Released run lock.")
	}
}
