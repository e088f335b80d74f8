// Package session keeps the runs of long-lived front-ends addressable by id
// and applies the reset-on-failure policy on top of the orchestrator.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dusk-indust/datawizard/internal/orchestrator"
)

// ErrNotFound is returned for an unknown run id.
var ErrNotFound = errors.New("session: run not found")

// Entry is one stored run.
type Entry struct {
	Name    string
	Run     *orchestrator.Run
	Created time.Time
}

// Summary is the listing view of a stored run.
type Summary struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	State   orchestrator.Status `json:"state"`
	Index   int                 `json:"index"`
	Stage   string              `json:"stage,omitempty"`
	Created time.Time           `json:"created"`
}

// ListRequest filters and paginates List.
type ListRequest struct {
	// State keeps only runs in that state when non-empty.
	State orchestrator.Status

	// PageToken is the NextPageToken of the previous page.
	PageToken string

	// PageSize <= 0 returns every match.
	PageSize int
}

// ListResponse is one page of summaries in insertion order.
type ListResponse struct {
	Runs          []Summary `json:"runs"`
	TotalSize     int       `json:"totalSize"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
}

// Store is a concurrency-safe in-memory run registry. Every entry gets an
// insertion sequence number; pages are cut by sequence so removing a run
// between pages does not invalidate a token.
type Store struct {
	mu    sync.RWMutex
	runs  map[string]*stored
	order []*stored
	seq   uint64
}

type stored struct {
	Entry
	seq uint64
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{runs: make(map[string]*stored)}
}

// Add stores a run. It fails if a run with the same id is already present.
func (s *Store) Add(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := e.Run.ID()
	if _, exists := s.runs[id]; exists {
		return fmt.Errorf("session: run %q already exists", id)
	}
	s.seq++
	rec := &stored{Entry: e, seq: s.seq}
	s.runs[id] = rec
	s.order = append(s.order, rec)
	return nil
}

// Get returns the entry for id.
func (s *Store) Get(id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return rec.Entry, nil
}

// Remove drops id and reports whether it was present.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[id]
	if !ok {
		return false
	}
	delete(s.runs, id)
	for i, v := range s.order {
		if v == rec {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of stored runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// List returns the runs matching req, one page at a time.
func (s *Store) List(req ListRequest) (*ListResponse, error) {
	var after uint64
	if req.PageToken != "" {
		n, err := strconv.ParseUint(req.PageToken, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("session: invalid page token %q", req.PageToken)
		}
		after = n
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	matched := []Summary{}
	var seqs []uint64
	for _, rec := range s.order {
		sum := summarize(&rec.Entry)
		if req.State != "" && sum.State != req.State {
			continue
		}
		total++
		if rec.seq > after {
			matched = append(matched, sum)
			seqs = append(seqs, rec.seq)
		}
	}

	var next string
	if req.PageSize > 0 && len(matched) > req.PageSize {
		next = strconv.FormatUint(seqs[req.PageSize-1], 10)
		matched = matched[:req.PageSize]
	}

	return &ListResponse{Runs: matched, TotalSize: total, NextPageToken: next}, nil
}

func summarize(e *Entry) Summary {
	snap := e.Run.Snapshot()
	sum := Summary{
		ID:      snap.ID,
		Name:    e.Name,
		State:   snap.State(),
		Index:   snap.Index,
		Created: e.Created,
	}
	if d, ok := snap.Current(); ok {
		sum.Stage = d.Name
	}
	return sum
}
