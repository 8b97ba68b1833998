// Package local provides a vector.Store that keeps one JSON file per
// namespace and answers queries by brute-force cosine similarity.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/metrics"
	"github.com/papercomputeco/nook/pkg/vector"
)

// VectorsDir is the directory under the storage root holding namespace files.
const VectorsDir = "vectors"

// Config holds configuration for the local store.
type Config struct {
	// Root is the storage root. Namespace files live in Root/vectors.
	Root string

	// Dimensions is the required length of every stored vector.
	Dimensions int
}

// Store implements vector.Store on top of per-namespace JSON files.
type Store struct {
	dir    string
	dim    int
	logger *zap.Logger

	// mu guards the namespaces table only. Each namespace carries its own lock.
	mu         sync.RWMutex
	namespaces map[string]*namespace

	watchMu sync.Mutex
	stop    context.CancelFunc
	done    chan struct{}
}

type namespace struct {
	mu      sync.Mutex
	id      string
	loaded  bool
	vectors []vector.Vector

	// written is the fingerprint of the last file this process persisted.
	written fingerprint
}

// NewStore creates the vectors directory if needed and returns a store.
// Namespaces are loaded lazily on first touch.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	if c.Root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if c.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be configured, got %d", c.Dimensions)
	}

	dir := filepath.Join(c.Root, VectorsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating vectors directory: %w", err)
	}

	logger.Info("local vector store initialized",
		zap.String("dir", dir),
		zap.Int("dimensions", c.Dimensions),
	)

	return &Store{
		dir:        dir,
		dim:        c.Dimensions,
		logger:     logger,
		namespaces: make(map[string]*namespace),
	}, nil
}

// Dimensions returns the vector length the store accepts.
func (s *Store) Dimensions() int {
	return s.dim
}

// Dir returns the directory holding namespace files.
func (s *Store) Dir() string {
	return s.dir
}

// namespace returns the entry for id, creating an unloaded one if needed.
func (s *Store) namespace(id string) *namespace {
	s.mu.RLock()
	ns, ok := s.namespaces[id]
	s.mu.RUnlock()
	if ok {
		return ns
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok = s.namespaces[id]; ok {
		return ns
	}
	ns = &namespace{id: id}
	s.namespaces[id] = ns
	return ns
}

// lookup returns the entry for id without creating it.
func (s *Store) lookup(id string) (*namespace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.namespaces[id]
	return ns, ok
}

// existing returns the entry for id when the namespace is already known or
// has a file on disk. Reads of unknown namespaces do not grow the table.
func (s *Store) existing(id string) (*namespace, bool) {
	if ns, ok := s.lookup(id); ok {
		return ns, true
	}
	if _, err := os.Stat(s.path(id)); err != nil {
		return nil, false
	}
	return s.namespace(id), true
}

// allNamespaces returns every namespace known in memory or on disk, sorted
// by id so scans have a deterministic order.
func (s *Store) allNamespaces() []*namespace {
	ids := make(map[string]struct{})

	onDisk, err := s.listFiles()
	if err != nil {
		s.logger.Warn("listing namespace files", zap.Error(err))
	}
	for _, id := range onDisk {
		ids[id] = struct{}{}
	}

	s.mu.RLock()
	for id := range s.namespaces {
		ids[id] = struct{}{}
	}
	s.mu.RUnlock()

	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	out := make([]*namespace, 0, len(sorted))
	for _, id := range sorted {
		out = append(out, s.namespace(id))
	}
	return out
}

// ensureLoaded reads the namespace file if the namespace has not been
// touched yet. Callers must hold ns.mu.
func (s *Store) ensureLoaded(ns *namespace) error {
	if ns.loaded {
		return nil
	}

	vectors, fp, err := s.readFile(ns.id)
	if err != nil {
		return err
	}

	ns.vectors = vectors
	ns.written = fp
	ns.loaded = true

	s.logger.Debug("namespace loaded",
		zap.String("namespace", ns.id),
		zap.Int("vectors", len(vectors)),
	)
	return nil
}

// validate reports why v cannot be stored, or nil.
func (s *Store) validate(v vector.Vector) error {
	if v.Metadata.NamespaceID == "" {
		return vector.ErrMissingNamespace
	}
	if len(v.Values) != s.dim {
		return fmt.Errorf("%w: got %d, want %d", vector.ErrDimensionMismatch, len(v.Values), s.dim)
	}
	return nil
}

// Upsert stores vectors grouped by namespace. Invalid vectors are skipped and
// the rest of the batch continues. Returns false if any namespace failed to
// load or persist.
func (s *Store) Upsert(ctx context.Context, vectors []vector.Vector) bool {
	groups := make(map[string][]vector.Vector)
	var order []string

	for _, v := range vectors {
		if err := s.validate(v); err != nil {
			reason := "dimension"
			if v.Metadata.NamespaceID == "" {
				reason = "missing_namespace"
			}
			metrics.StoreSkipped.WithLabelValues(reason).Inc()
			metrics.StoreUpserts.WithLabelValues("skipped").Inc()
			s.logger.Warn("skipping vector",
				zap.String("id", v.ID),
				zap.String("namespace", v.Metadata.NamespaceID),
				zap.Error(err),
			)
			continue
		}

		nsID := v.Metadata.NamespaceID
		if _, ok := groups[nsID]; !ok {
			order = append(order, nsID)
		}
		groups[nsID] = append(groups[nsID], cloneVector(v))
	}

	ok := true
	for _, nsID := range order {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("upsert cancelled", zap.Error(err))
			return false
		}
		if err := s.upsertNamespace(nsID, groups[nsID]); err != nil {
			s.logger.Error("upserting namespace",
				zap.String("namespace", nsID),
				zap.Error(err),
			)
			ok = false
		}
	}
	return ok
}

func (s *Store) upsertNamespace(nsID string, incoming []vector.Vector) error {
	ns := s.namespace(nsID)
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if err := s.ensureLoaded(ns); err != nil {
		return err
	}

	// The last vector wins when a batch carries the same id twice.
	latest := make(map[string]int, len(incoming))
	for i, v := range incoming {
		latest[v.ID] = i
	}

	kept := ns.vectors[:0:0]
	for _, existing := range ns.vectors {
		if _, replaced := latest[existing.ID]; !replaced {
			kept = append(kept, existing)
		}
	}
	for i, v := range incoming {
		if latest[v.ID] == i {
			kept = append(kept, v)
		}
	}

	ns.vectors = kept
	metrics.StoreUpserts.WithLabelValues("stored").Add(float64(len(latest)))

	return s.persist(ns)
}

// Query scores every candidate that satisfies the filter and returns the
// TopK best. Ties keep insertion order.
func (s *Store) Query(ctx context.Context, req vector.QueryRequest) ([]vector.Match, error) {
	start := time.Now()
	defer func() {
		metrics.StoreQueryDuration.Observe(time.Since(start).Seconds())
	}()

	topK := req.TopK
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	var targets []*namespace
	if nsID, ok := req.Filter.Namespace(); ok {
		ns, found := s.existing(nsID)
		if !found {
			return nil, nil
		}
		targets = []*namespace{ns}
	} else {
		targets = s.allNamespaces()
	}

	var matches []vector.Match
	for _, ns := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		snapshot, err := s.snapshot(ns)
		if err != nil {
			if len(targets) == 1 {
				return nil, err
			}
			s.logger.Warn("skipping unreadable namespace",
				zap.String("namespace", ns.id),
				zap.Error(err),
			)
			continue
		}

		for _, v := range snapshot {
			if !req.Filter.Matches(v.Metadata) {
				continue
			}
			md := v.Metadata.Clone()
			if !req.IncludeMetadata {
				md = md.Summary()
			}
			matches = append(matches, vector.Match{
				ID:       v.ID,
				Score:    vector.CosineSimilarity(req.Vector, v.Values),
				Metadata: md,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// snapshot loads the namespace if needed and returns its vectors. The
// returned slice is not modified by later writes, which replace ns.vectors.
func (s *Store) snapshot(ns *namespace) ([]vector.Vector, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if err := s.ensureLoaded(ns); err != nil {
		return nil, err
	}
	return ns.vectors, nil
}

// List returns a copy of every vector in a namespace in insertion order.
func (s *Store) List(ctx context.Context, namespaceID string) ([]vector.Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ns, found := s.existing(namespaceID)
	if !found {
		return []vector.Vector{}, nil
	}
	snapshot, err := s.snapshot(ns)
	if err != nil {
		return nil, err
	}

	out := make([]vector.Vector, len(snapshot))
	for i, v := range snapshot {
		out[i] = cloneVector(v)
	}
	return out, nil
}

// DeleteOne removes the vector with the given id from the first namespace
// that holds it.
func (s *Store) DeleteOne(ctx context.Context, id string) (bool, error) {
	for _, ns := range s.allNamespaces() {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		removed, err := s.deleteWhere(ns, func(v vector.Vector) bool { return v.ID == id })
		if err != nil {
			return false, err
		}
		if removed > 0 {
			return true, nil
		}
	}
	return false, nil
}

// DeleteMany removes every vector matching the filter. Without a namespace
// in the filter every namespace is swept.
func (s *Store) DeleteMany(ctx context.Context, filter vector.Filter) (int, error) {
	var targets []*namespace
	if nsID, ok := filter.Namespace(); ok {
		ns, found := s.existing(nsID)
		if !found {
			return 0, nil
		}
		targets = []*namespace{ns}
	} else {
		targets = s.allNamespaces()
	}

	total := 0
	for _, ns := range targets {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		removed, err := s.deleteWhere(ns, func(v vector.Vector) bool { return filter.Matches(v.Metadata) })
		if err != nil {
			return 0, err
		}
		total += removed
	}
	return total, nil
}

// DeleteIDs removes the listed ids from namespaceID only, persisting the
// namespace once.
func (s *Store) DeleteIDs(ctx context.Context, namespaceID string, ids []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	ns, found := s.existing(namespaceID)
	if !found {
		return 0, nil
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	return s.deleteWhere(ns, func(v vector.Vector) bool {
		_, ok := drop[v.ID]
		return ok
	})
}

// deleteWhere removes the vectors of ns that satisfy match and persists the
// namespace when anything was removed.
func (s *Store) deleteWhere(ns *namespace, match func(vector.Vector) bool) (int, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if err := s.ensureLoaded(ns); err != nil {
		return 0, err
	}

	kept := slices.DeleteFunc(slices.Clone(ns.vectors), match)
	removed := len(ns.vectors) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	ns.vectors = kept
	if err := s.persist(ns); err != nil {
		return 0, err
	}

	s.logger.Debug("vectors deleted",
		zap.String("namespace", ns.id),
		zap.Int("removed", removed),
	)
	return removed, nil
}

// Stats loads every namespace and reports how many vectors each holds.
// Namespaces that cannot be read are logged and left out.
func (s *Store) Stats(_ context.Context) vector.Stats {
	stats := vector.Stats{PerNamespace: make(map[string]int)}

	for _, ns := range s.allNamespaces() {
		snapshot, err := s.snapshot(ns)
		if err != nil {
			s.logger.Warn("stats: skipping unreadable namespace",
				zap.String("namespace", ns.id),
				zap.Error(err),
			)
			continue
		}
		if len(snapshot) == 0 {
			continue
		}
		stats.PerNamespace[ns.id] = len(snapshot)
		stats.TotalVectors += len(snapshot)
	}

	stats.Namespaces = len(stats.PerNamespace)
	return stats
}

// Close stops the file watcher if one is running.
func (s *Store) Close() error {
	s.watchMu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.watchMu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	return nil
}

func cloneVector(v vector.Vector) vector.Vector {
	return vector.Vector{
		ID:       v.ID,
		Values:   slices.Clone(v.Values),
		Metadata: v.Metadata.Clone(),
	}
}
