package file

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/solsim/pkg/ports"
	"github.com/aretw0/solsim/pkg/results"
)

// Store implements ports.ResultStore on the local filesystem, one JSON file
// per execution in a configured directory.
type Store struct {
	BasePath string
}

// New creates a Store rooted at basePath, ".solsim/results" when empty.
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".solsim", "results")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(executionID string) (string, error) {
	if executionID == "" {
		return "", fmt.Errorf("executionID cannot be empty")
	}
	if strings.ContainsAny(executionID, `/\`) || executionID == "." || executionID == ".." {
		return "", fmt.Errorf("invalid executionID %q", executionID)
	}
	return filepath.Join(s.BasePath, executionID+".json"), nil
}

// Save writes the table atomically: a temp file in the same directory is
// written, fsynced and renamed over the destination.
func (s *Store) Save(ctx context.Context, executionID string, table *results.Table) error {
	destPath, err := s.path(executionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure results directory: %w", err)
	}

	var buf bytes.Buffer
	if err := table.WriteJSON(&buf); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+executionID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	// Windows rename does not replace an existing destination.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove previous results: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load reads a stored table.
func (s *Store) Load(ctx context.Context, executionID string) (*results.Table, error) {
	path, err := s.path(executionID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ports.ErrResultsNotFound
		}
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()
	return results.ReadJSON(f)
}

// Delete removes the results file. Deleting a missing execution is not an error.
func (s *Store) Delete(ctx context.Context, executionID string) error {
	path, err := s.path(executionID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete results file: %w", err)
	}
	return nil
}

// List returns the stored execution IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	slices.Sort(ids)
	return ids, nil
}
