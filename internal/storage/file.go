package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileProfileStore keeps all profiles in a single local JSON file,
// written atomically via a temp file rename.
type FileProfileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileProfileStore(path string) *FileProfileStore {
	return &FileProfileStore{path: path}
}

func (s *FileProfileStore) SaveProfile(ctx context.Context, address string, payload []byte) error {
	if s.path == "" {
		return fmt.Errorf("profile file path is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.readAll()
	if err != nil {
		return err
	}
	profiles[address] = json.RawMessage(payload)

	data, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("marshal profiles: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create profile dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write profiles tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename profiles: %w", err)
	}
	return nil
}

func (s *FileProfileStore) LoadProfiles(ctx context.Context) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.readAll()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(profiles))
	for address, payload := range profiles {
		out[address] = []byte(payload)
	}
	return out, nil
}

func (s *FileProfileStore) readAll() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]json.RawMessage), nil
		}
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	profiles := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	return profiles, nil
}
