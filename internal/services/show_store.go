package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/TattooNOW/tattoonow-show/internal/models"
)

var (
	ErrShowNotFound = errors.New("show not found")
	ErrInvalidID    = errors.New("invalid identifier")
)

// descriptorExts are tried in order when resolving a descriptor file
var descriptorExts = []string{".json", ".yaml", ".yml"}

// validID rejects identifiers that could escape the data directory
func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// decodeDescriptor unmarshals data as YAML or JSON depending on the extension
func decodeDescriptor(path string, data []byte, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	default:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// readFirst reads the first existing file among candidates. ok is false when
// none exists.
func readFirst(candidates []string) (path string, data []byte, ok bool, err error) {
	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return p, nil, false, fmt.Errorf("failed to read %s: %w", p, err)
		}
		return p, data, true, nil
	}
	return "", nil, false, nil
}

// writeAtomic writes data to path via temp file → rename
func writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	file, err := os.OpenFile(tempPath, os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open temp file for sync: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	file.Close()

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// ShowStore loads show descriptors (<id>.json / .yaml / .yml) from a
// directory and caches them until invalidated
type ShowStore struct {
	mu    sync.RWMutex
	dir   string
	cache map[string]*models.Show
}

// NewShowStore creates a show store rooted at dir
func NewShowStore(dir string) (*ShowStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create shows directory: %w", err)
	}
	return &ShowStore{
		dir:   dir,
		cache: make(map[string]*models.Show),
	}, nil
}

// GetShow returns the show descriptor for id
func (s *ShowStore) GetShow(ctx context.Context, id string) (*models.Show, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	show, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return show, nil
	}

	candidates := make([]string, 0, len(descriptorExts))
	for _, ext := range descriptorExts {
		candidates = append(candidates, filepath.Join(s.dir, id+ext))
	}
	path, data, found, err := readFirst(candidates)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrShowNotFound, id)
	}

	var loaded models.Show
	if err := decodeDescriptor(path, data, &loaded); err != nil {
		return nil, err
	}
	if loaded.ID == "" {
		loaded.ID = id
	}

	s.mu.Lock()
	s.cache[id] = &loaded
	s.mu.Unlock()

	log.Printf("Loaded show %s (%d rundown entries) from %s", id, len(loaded.Rundown), path)
	return &loaded, nil
}

// SaveShow writes show as <id>.json and refreshes the cache
func (s *ShowStore) SaveShow(show *models.Show) error {
	if show == nil {
		return fmt.Errorf("show is required")
	}
	if err := validID(show.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(show, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal show: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeAtomic(filepath.Join(s.dir, show.ID+".json"), data); err != nil {
		return err
	}
	copied := *show
	s.cache[show.ID] = &copied
	log.Printf("Saved show %s", show.ID)
	return nil
}

// Invalidate drops a cached show so the next GetShow rereads the file
func (s *ShowStore) Invalidate(id string) {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
}

// ListShows returns the ids of all show descriptors on disk
func (s *ShowStore) ListShows() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list shows: %w", err)
	}
	seen := make(map[string]bool)
	ids := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		for _, known := range descriptorExts {
			if strings.EqualFold(ext, known) {
				id := strings.TrimSuffix(e.Name(), ext)
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}
