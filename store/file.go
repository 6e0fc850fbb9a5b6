package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// File defines a public type used by farmsession APIs.
//
// File is a Store backed by a single JSON file on disk. Every operation reads
// and rewrites the whole file under a process-local mutex; the format is a flat
// string-to-string object. Corrupt or unreadable files degrade to an empty
// store rather than failing.
type File struct {
	path   string
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewFile describes the newfile operation and its observable behavior.
//
// NewFile returns a file-backed store writing to path. The file and its parent
// directory are created lazily on first Set.
func NewFile(path string, logger zerolog.Logger) *File {
	return &File{
		path:   path,
		logger: logger,
	}
}

// Get describes the get operation and its observable behavior.
//
// Get reports the stored value and whether it was present. Any read or decode
// failure is treated as absence.
func (f *File) Get(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	values := f.load()
	v, ok := values[key]
	return v, ok
}

// Set describes the set operation and its observable behavior.
//
// Set stores the value under key and reports whether the file write succeeded.
// Failures are logged and reported as false; they never propagate.
func (f *File) Set(key, value string) bool {
	if f == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	values := f.load()
	values[key] = value
	return f.save(values)
}

// Remove describes the remove operation and its observable behavior.
//
// Remove deletes the value under key and reports whether the file write
// succeeded. Removing an absent key reports true without touching the file.
func (f *File) Remove(key string) bool {
	if f == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	values := f.load()
	if _, ok := values[key]; !ok {
		return true
	}
	delete(values, key)
	return f.save(values)
}

func (f *File) load() map[string]string {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return map[string]string{}
	}

	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		f.logger.Warn().Str("path", f.path).Msg("farmsession: store file corrupt, treating as empty")
		return map[string]string{}
	}
	return values
}

func (f *File) save(values map[string]string) bool {
	data, err := json.Marshal(values)
	if err != nil {
		f.logger.Warn().Err(err).Msg("farmsession: store file encode failed")
		return false
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			f.logger.Warn().Err(err).Str("path", f.path).Msg("farmsession: store directory create failed")
			return false
		}
	}

	// Write-then-rename keeps readers from ever observing a torn file.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		f.logger.Warn().Err(err).Str("path", f.path).Msg("farmsession: store file write failed")
		return false
	}
	if err := os.Rename(tmp, f.path); err != nil {
		f.logger.Warn().Err(err).Str("path", f.path).Msg("farmsession: store file rename failed")
		return false
	}
	return true
}
