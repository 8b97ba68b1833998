package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/metrics"
	"github.com/papercomputeco/nook/pkg/vector"
)

const fileExt = ".json"

// fingerprint identifies one version of a namespace file.
type fingerprint struct {
	size    int64
	modTime time.Time
	exists  bool
}

func fingerprintOf(info fs.FileInfo) fingerprint {
	return fingerprint{size: info.Size(), modTime: info.ModTime(), exists: true}
}

// fileName maps a namespace id to its file name.
func fileName(namespaceID string) string {
	return url.PathEscape(namespaceID) + fileExt
}

// namespaceFromFile maps a file name back to its namespace id. Temporary
// files and anything that is not a namespace file report false.
func namespaceFromFile(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	id, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (s *Store) path(namespaceID string) string {
	return filepath.Join(s.dir, fileName(namespaceID))
}

// readFile decodes a namespace file. A missing file is an empty namespace.
func (s *Store) readFile(namespaceID string) ([]vector.Vector, fingerprint, error) {
	path := s.path(namespaceID)

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fingerprint{}, nil
	}
	if err != nil {
		return nil, fingerprint{}, fmt.Errorf("opening namespace file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fingerprint{}, fmt.Errorf("stat namespace file: %w", err)
	}

	var vectors []vector.Vector
	if err := json.NewDecoder(f).Decode(&vectors); err != nil {
		return nil, fingerprint{}, fmt.Errorf("decoding namespace %q: %w", namespaceID, err)
	}

	return vectors, fingerprintOf(info), nil
}

// persist writes the namespace atomically: encode into a temp file in the
// same directory, fsync, then rename over the old file. Callers must hold
// ns.mu.
func (s *Store) persist(ns *namespace) error {
	if err := s.writeAtomic(ns); err != nil {
		metrics.StorePersistFailures.Inc()
		return fmt.Errorf("%w: %w", vector.ErrPersist, err)
	}
	return nil
}

func (s *Store) writeAtomic(ns *namespace) error {
	vectors := ns.vectors
	if vectors == nil {
		vectors = []vector.Vector{}
	}

	data, err := json.Marshal(vectors)
	if err != nil {
		return fmt.Errorf("encoding namespace: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+fileName(ns.id)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	path := s.path(ns.id)
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	if info, err := os.Stat(path); err == nil {
		ns.written = fingerprintOf(info)
	} else {
		s.logger.Warn("stat after persist", zap.String("namespace", ns.id), zap.Error(err))
	}

	return nil
}

// listFiles returns the namespace ids that have a file on disk.
func (s *Store) listFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading vectors directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if id, ok := namespaceFromFile(entry.Name()); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
