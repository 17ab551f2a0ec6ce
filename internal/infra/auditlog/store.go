// Package auditlog persists the deployment rate-limit log as a single
// structured JSON file: one ordered sequence of deployment timestamps used
// for window counting, and one ordered sequence of requester records kept
// forever as an audit trail.
package auditlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/divyamohan1993/project-orchestrator/internal/logic/ratelimit"
)

// Store is a writer-lock-guarded file store implementing the rate limiter's
// Store port. The file is rewritten whole on every save through a temp file
// rename, so a crash mid-write never truncates the log.
type Store struct {
	mu     sync.Mutex
	logger *slog.Logger
	path   string
	state  fileState
}

type fileState struct {
	Deployments []time.Time      `json:"deployments"`
	Requesters  []requesterEntry `json:"requesters"`
}

type requesterEntry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Name         string    `json:"name"`
	Contact      string    `json:"contact"`
	Organization string    `json:"organization"`
	SourceAddr   string    `json:"source_addr"`
	TrustScore   float64   `json:"trust_score"`
}

var _ ratelimit.Store = (*Store)(nil)

// Open loads the log at path, creating parent directories as needed. A
// missing file is an empty log.
func Open(logger *slog.Logger, path string) (*Store, error) {
	s := &Store{
		logger: logger,
		path:   path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}

		return nil, fmt.Errorf("read audit log: %w", err)
	}

	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("decode audit log %s: %w", path, err)
	}

	logger.Info("audit log loaded",
		"path", path,
		"deployments", len(s.state.Deployments),
		"requesters", len(s.state.Requesters),
	)

	return s, nil
}

// DeployTimes returns all recorded deployment timestamps in append order.
func (s *Store) DeployTimes() ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]time.Time, len(s.state.Deployments))
	copy(out, s.state.Deployments)

	return out, nil
}

// Append records one deployment in both sequences and saves.
func (s *Store) Append(rec ratelimit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Deployments = append(s.state.Deployments, rec.Timestamp)
	s.state.Requesters = append(s.state.Requesters, requesterEntry{
		ID:           rec.ID,
		Timestamp:    rec.Timestamp,
		Name:         rec.Name,
		Contact:      rec.Contact,
		Organization: rec.Organization,
		SourceAddr:   rec.SourceAddr,
		TrustScore:   rec.TrustScore,
	})

	return s.save()
}

// Prune drops deployment timestamps strictly before the cutoff. Requester
// records are never pruned; they are the audit trail.
func (s *Store) Prune(cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]time.Time, 0, len(s.state.Deployments))

	for _, t := range s.state.Deployments {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) == len(s.state.Deployments) {
		return nil
	}

	s.state.Deployments = kept

	return s.save()
}

// save rewrites the whole file. Caller holds s.mu.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create audit log dir: %w", err)
	}

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode audit log: %w", err)
	}

	tmp := s.path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace audit log: %w", err)
	}

	return nil
}
