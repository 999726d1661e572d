package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/TattooNOW/tattoonow-show/internal/models"
)

var ErrTapeNotFound = errors.New("tape not found")

// TapeFailure records a tape that could not be resolved for a show
type TapeFailure struct {
	TapeID string `json:"tapeId"`
	Error  string `json:"error"`
}

// TapeStore resolves tape records from a directory. A tape id may be stored
// as <id>.json, <id>.yaml, <id>.yml or tape-<id>.json / tape-<id>.yaml, with
// the lower-cased id tried as a fallback.
type TapeStore struct {
	mu      sync.RWMutex
	dir     string
	workers int
	cache   map[string]*models.Tape
}

// NewTapeStore creates a tape store rooted at dir fetching with up to workers
// concurrent reads
func NewTapeStore(dir string, workers int) (*TapeStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tapes directory: %w", err)
	}
	if workers <= 0 {
		workers = 8
	}
	return &TapeStore{
		dir:     dir,
		workers: workers,
		cache:   make(map[string]*models.Tape),
	}, nil
}

func (s *TapeStore) candidates(id string) []string {
	names := []string{id}
	if lower := strings.ToLower(id); lower != id {
		names = append(names, lower)
	}
	var paths []string
	for _, name := range names {
		for _, ext := range descriptorExts {
			paths = append(paths, filepath.Join(s.dir, name+ext))
		}
		paths = append(paths,
			filepath.Join(s.dir, "tape-"+name+".json"),
			filepath.Join(s.dir, "tape-"+name+".yaml"))
	}
	return paths
}

// GetTape loads and validates the tape with the given id
func (s *TapeStore) GetTape(ctx context.Context, id string) (*models.Tape, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	tape, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return tape, nil
	}

	path, data, found, err := readFirst(s.candidates(id))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrTapeNotFound, id)
	}

	var loaded models.Tape
	if err := decodeDescriptor(path, data, &loaded); err != nil {
		return nil, err
	}
	if loaded.ID == "" {
		loaded.ID = id
	}
	if err := loaded.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[id] = &loaded
	s.mu.Unlock()
	return &loaded, nil
}

// Invalidate clears the tape cache
func (s *TapeStore) Invalidate() {
	s.mu.Lock()
	s.cache = make(map[string]*models.Tape)
	s.mu.Unlock()
}

// FetchAll resolves ids concurrently. Tapes that are missing or invalid are
// reported as failures; the rest are returned keyed by the requested id.
func (s *TapeStore) FetchAll(ctx context.Context, ids []string) (map[string]*models.Tape, []TapeFailure) {
	type fetched struct {
		id   string
		tape *models.Tape
		err  error
	}

	p := pool.NewWithResults[fetched]().WithMaxGoroutines(s.workers)
	for _, id := range ids {
		id := id
		p.Go(func() fetched {
			tape, err := s.GetTape(ctx, id)
			return fetched{id: id, tape: tape, err: err}
		})
	}

	tapes := make(map[string]*models.Tape, len(ids))
	var failures []TapeFailure
	for _, r := range p.Wait() {
		if r.err != nil {
			log.Printf("Failed to fetch tape %s: %v", r.id, r.err)
			failures = append(failures, TapeFailure{TapeID: r.id, Error: r.err.Error()})
			continue
		}
		tapes[r.id] = r.tape
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].TapeID < failures[j].TapeID })
	return tapes, failures
}
