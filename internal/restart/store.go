package restart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/smazurov/camview/internal/config"
)

var (
	// ErrStorageUnavailable is returned when the record file cannot be read or written.
	ErrStorageUnavailable = errors.New("restart record storage unavailable")
	// ErrMalformedRecord is returned when the record file does not hold a JSON object.
	ErrMalformedRecord = errors.New("malformed restart record")
)

// Store persists the restart record. Implementations must be safe for use by
// several goroutines; FileStore is also safe across processes.
type Store interface {
	Load() (Record, error)
	Update(fn func(Record)) error
}

// Watchable is implemented by stores that can report changes made elsewhere.
type Watchable interface {
	Watch(logger *slog.Logger, onChange func(Record)) (stop func() error, err error)
}

// FileStore keeps the record in a JSON file guarded by an advisory file lock.
// Goroutines of one process are ordered by mu; each call takes the file lock
// through its own descriptor, since a shared flock.Flock treats a second Lock
// as already held.
type FileStore struct {
	path     string
	lockPath string
	mu       sync.RWMutex
}

// NewFileStore creates a store backed by path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:     path,
		lockPath: path + ".lock",
	}
}

// Path returns the record file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the record under a shared lock. A missing or empty file is an empty record.
func (s *FileStore) Load() (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lock := flock.New(s.lockPath)
	if err := lock.RLock(); err != nil {
		return Record{}, fmt.Errorf("%w: lock %s: %v", ErrStorageUnavailable, s.lockPath, err)
	}
	defer func() { _ = lock.Unlock() }()

	return s.read()
}

// Update applies fn to the current record and writes it back under an exclusive
// lock. A malformed file is replaced rather than blocking every future write.
func (s *FileStore) Update(fn func(Record)) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lock := flock.New(s.lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("%w: lock %s: %v", ErrStorageUnavailable, s.lockPath, err)
	}
	defer func() { _ = lock.Unlock() }()

	rec, err := s.read()
	if err != nil && !errors.Is(err, ErrMalformedRecord) {
		return err
	}
	fn(rec)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode restart record: %w", err)
	}
	// Written in place (not renamed) so a watch on the path keeps working.
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Watch reports record changes made by any process. The file is created empty
// if it does not exist yet, since the watch needs an existing path.
func (s *FileStore) Watch(logger *slog.Logger, onChange func(Record)) (func() error, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		if err := s.Update(func(Record) {}); err != nil {
			return nil, err
		}
	}

	w := config.NewConfigWatcher(
		s.path,
		func(string) (Record, error) { return s.Load() },
		logger,
		config.WithDebounce[Record](100*time.Millisecond),
		config.WithLabel[Record]("restart record"),
	)
	w.OnReload(onChange)
	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("%w: watch %s: %v", ErrStorageUnavailable, s.path, err)
	}
	return w.Stop, nil
}

// read parses the file (caller holds the lock). Non-numeric values are skipped.
func (s *FileStore) read() (Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return decodeRecord(data)
}

func decodeRecord(data []byte) (Record, error) {
	rec := Record{}
	if len(bytes.TrimSpace(data)) == 0 {
		return rec, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	for id, v := range raw {
		var ts float64
		if err := json.Unmarshal(v, &ts); err != nil || ts <= 0 {
			continue
		}
		rec[id] = int64(ts)
	}
	return rec, nil
}

// MemoryStore keeps the record in process memory only.
type MemoryStore struct {
	mu  sync.RWMutex
	rec Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rec: Record{}}
}

// Load returns a copy of the record.
func (m *MemoryStore) Load() (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rec.Clone(), nil
}

// Update applies fn to the record.
func (m *MemoryStore) Update(fn func(Record)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.rec)
	return nil
}
