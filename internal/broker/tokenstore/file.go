package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"gopkg.in/yaml.v3"
)

// keepDays bounds how many dated records the file retains.
const keepDays = 7

// FileStore keeps all records in one YAML document mapping date key to
// record. Writes go to a temp file in the same directory and are renamed
// into place so readers never observe a partial file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		mu:   sync.Mutex{},
	}
}

// DefaultPath returns ~/KIS/config/tokens.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeTokenStore, "failed to resolve home directory", err)
	}

	return filepath.Join(home, "KIS", "config", "tokens.yaml"), nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, key string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return Record{}, false, err
	}

	rec, ok := records[key]

	return rec, ok, nil
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, key string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		// a corrupt file is replaced rather than blocking issuance
		records = map[string]Record{}
	}

	records[key] = rec
	prune(records)

	return s.write(records)
}

//nolint:funcorder // helper used by Load and Save
func (s *FileStore) read() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]Record{}, nil
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTokenStore, "failed to read token file", err)
	}

	records := map[string]Record{}
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTokenStore, "failed to parse token file", err)
	}

	return records, nil
}

//nolint:funcorder // helper used by Save
func (s *FileStore) write(records map[string]Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrap(errors.ErrCodeTokenStore, "failed to create token directory", err)
	}

	data, err := yaml.Marshal(records)
	if err != nil {
		return errors.Wrap(errors.ErrCodeTokenStore, "failed to encode token file", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*.yaml")
	if err != nil {
		return errors.Wrap(errors.ErrCodeTokenStore, "failed to create temp token file", err)
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return errors.Wrap(errors.ErrCodeTokenStore, "failed to write temp token file", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)

		return errors.Wrap(errors.ErrCodeTokenStore, "failed to close temp token file", err)
	}

	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)

		return errors.Wrap(errors.ErrCodeTokenStore, "failed to set token file mode", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)

		return errors.Wrap(errors.ErrCodeTokenStore, "failed to replace token file", err)
	}

	return nil
}

// prune drops all but the newest keepDays keys. Keys sort chronologically.
func prune(records map[string]Record) {
	if len(records) <= keepDays {
		return
	}

	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys[:len(keys)-keepDays] {
		delete(records, k)
	}
}
