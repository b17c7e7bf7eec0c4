// Package store holds the mock NFT storage for medical summaries.  A
// summary is saved as pending and later minted to a wallet; nothing here
// touches a real ledger.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"healthscribe/pkg"
)

// FileStore keeps the whole record set as one JSON array on disk and
// rewrites it on every change.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore makes sure the parent directory of path exists.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &FileStore{path: path}, nil
}

// Save inserts summary, or replaces the record with the same id.
func (s *FileStore) Save(_ context.Context, summary pkg.MedicalSummary) (pkg.MedicalSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return pkg.MedicalSummary{}, err
	}
	replaced := false
	for i := range all {
		if all[i].ID == summary.ID {
			all[i] = summary
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, summary)
	}
	if err := s.write(all); err != nil {
		return pkg.MedicalSummary{}, err
	}
	return summary, nil
}

// GetAll returns every record in insertion order.
func (s *FileStore) GetAll(_ context.Context) ([]pkg.MedicalSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// GetByID returns the record with the given id or ErrSummaryNotFound.
func (s *FileStore) GetByID(_ context.Context, id string) (pkg.MedicalSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.load()
	if err != nil {
		return pkg.MedicalSummary{}, err
	}
	for _, m := range all {
		if m.ID == id {
			return m, nil
		}
	}
	return pkg.MedicalSummary{}, pkg.ErrSummaryNotFound
}

// Mint marks a pending summary as minted and records its owner.
func (s *FileStore) Mint(_ context.Context, id, wallet string) (pkg.MedicalSummary, error) {
	if wallet == "" {
		return pkg.MedicalSummary{}, pkg.ErrWalletRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return pkg.MedicalSummary{}, err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		all[i].Status = pkg.StatusMinted
		all[i].OwnerWallet = wallet
		if err := s.write(all); err != nil {
			return pkg.MedicalSummary{}, err
		}
		return all[i], nil
	}
	return pkg.MedicalSummary{}, pkg.ErrSummaryNotFound
}

func (s *FileStore) load() ([]pkg.MedicalSummary, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []pkg.MedicalSummary{}, nil
	}
	if err != nil {
		return nil, err
	}
	var all []pkg.MedicalSummary
	if len(data) == 0 {
		return []pkg.MedicalSummary{}, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summaries: %w", err)
	}
	return all, nil
}

func (s *FileStore) write(all []pkg.MedicalSummary) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summaries: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write tmp file: %w", err)
	}
	return os.Rename(tmpPath, s.path)
}
