// Package persistence provides on-disk storage for condition sets.
// It persists exported condition records so filter state survives
// restarts and can be shared between invocations.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rowfilter/engine/internal/logger"
	"github.com/rowfilter/engine/internal/pathutil"
	"github.com/rowfilter/engine/pkg/filtering"
)

// DefaultStorePath is the default directory for condition-set files.
const DefaultStorePath = "./rowfilter-data/sets"

// Common errors
var (
	// ErrInvalidSetID is returned when the set ID is empty or unsafe.
	ErrInvalidSetID = errors.New("set ID is required")

	// ErrNilSet is returned when the condition set is nil.
	ErrNilSet = errors.New("condition set is nil")
)

// SetStore provides thread-safe persistence of condition sets.
// Set files are stored as JSON in the configured base path.
type SetStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewSetStore creates a new SetStore with the specified base path.
// If basePath is empty, DefaultStorePath is used.
func NewSetStore(basePath string) *SetStore {
	if basePath == "" {
		basePath = DefaultStorePath
	}
	return &SetStore{
		basePath: basePath,
	}
}

// filePath returns the full path for a condition set's file.
func (s *SetStore) filePath(setID string) (string, error) {
	safeName, err := pathutil.SanitizeName(setID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSetID, err)
	}
	return filepath.Join(s.basePath, safeName+".json"), nil
}

// Save persists a condition set under the given ID.
// Uses atomic write (temp file + rename) to prevent corruption.
// Creates the base directory if it doesn't exist.
func (s *SetStore) Save(setID string, set *filtering.ConditionSet) error {
	if setID == "" {
		return ErrInvalidSetID
	}
	if set == nil {
		return ErrNilSet
	}

	filePath, err := s.filePath(setID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.basePath, 0700); err != nil {
		// Another process may have created the directory between check and create
		if _, statErr := os.Stat(s.basePath); statErr != nil {
			logger.Warn("failed to create set directory",
				"path", s.basePath,
				"error", err.Error(),
			)
			return fmt.Errorf("creating set directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		logger.Warn("failed to marshal condition set",
			"set_id", setID,
			"error", err.Error(),
		)
		return fmt.Errorf("marshaling condition set: %w", err)
	}

	// Write to temp file first (atomic write)
	tempPath := filePath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		logger.Warn("failed to write temp set file",
			"set_id", setID,
			"path", tempPath,
			"error", err.Error(),
		)
		return fmt.Errorf("writing temp set file: %w", err)
	}

	// Rename temp file to final path (atomic on POSIX)
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		logger.Warn("failed to rename set file",
			"set_id", setID,
			"temp_path", tempPath,
			"final_path", filePath,
			"error", err.Error(),
		)
		return fmt.Errorf("renaming set file: %w", err)
	}

	logger.Debug("condition set saved",
		"set_id", setID,
		"path", filePath,
		"columns", len(set.Columns),
	)

	return nil
}

// Load retrieves a condition set by ID.
// Returns nil, nil if the set file doesn't exist.
func (s *SetStore) Load(setID string) (*filtering.ConditionSet, error) {
	if setID == "" {
		return nil, ErrInvalidSetID
	}

	filePath, err := s.filePath(setID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("no set file found",
				"set_id", setID,
				"path", filePath,
			)
			return nil, nil
		}
		logger.Warn("failed to read set file",
			"set_id", setID,
			"path", filePath,
			"error", err.Error(),
		)
		return nil, fmt.Errorf("reading set file: %w", err)
	}

	var set filtering.ConditionSet
	if err := json.Unmarshal(data, &set); err != nil {
		logger.Warn("failed to unmarshal condition set",
			"set_id", setID,
			"path", filePath,
			"error", err.Error(),
		)
		return nil, fmt.Errorf("unmarshaling condition set: %w", err)
	}

	logger.Debug("condition set loaded",
		"set_id", setID,
		"path", filePath,
		"columns", len(set.Columns),
	)

	return &set, nil
}

// Delete removes the file for a condition set.
// Returns nil if the file doesn't exist.
func (s *SetStore) Delete(setID string) error {
	if setID == "" {
		return ErrInvalidSetID
	}

	filePath, err := s.filePath(setID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Warn("failed to delete set file",
			"set_id", setID,
			"path", filePath,
			"error", err.Error(),
		)
		return fmt.Errorf("deleting set file: %w", err)
	}

	logger.Debug("condition set deleted",
		"set_id", setID,
		"path", filePath,
	)

	return nil
}

// Exists checks if a set file exists for the given ID.
func (s *SetStore) Exists(setID string) (bool, error) {
	if setID == "" {
		return false, ErrInvalidSetID
	}

	filePath, err := s.filePath(setID)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err = os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking set file: %w", err)
	}
	return true, nil
}

// List returns the IDs of all stored condition sets, sorted.
// Returns an empty slice if the base directory doesn't exist yet.
func (s *SetStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("reading set directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
