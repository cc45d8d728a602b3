package settings

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the settings file below the home directory.
const DefaultFile = ".imgprof/settings.yaml"

// MemoryStore keeps settings in memory only.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// FileStore keeps settings as a flat YAML map in a file.
// The whole file is rewritten on every Set, the last write wins.
type FileStore struct {
	path   string
	mu     sync.RWMutex
	values map[string]string
}

// DefaultPath returns $HOME/.imgprof/settings.yaml.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "cannot find home directory")
	}
	return filepath.Join(home, DefaultFile), nil
}

// OpenFileStore reads the settings file at path. A missing file yields an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot read settings file")
	}

	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, errors.Wrap(err, "cannot parse settings file")
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}

	return s, nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	data, err := yaml.Marshal(s.values)
	if err != nil {
		return errors.Wrap(err, "cannot encode settings")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrap(err, "cannot create settings directory")
	}

	return errors.Wrap(os.WriteFile(s.path, data, 0644), "cannot write settings file")
}
