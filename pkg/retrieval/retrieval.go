// Package retrieval is the façade collaborators use to store, retrieve and
// delete business documents. It picks semantic or keyword retrieval per call.
package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/embeddings/resolve"
	"github.com/papercomputeco/nook/pkg/metrics"
	"github.com/papercomputeco/nook/pkg/retrieval/keyword"
	"github.com/papercomputeco/nook/pkg/vector"
)

// DefaultLimit is the number of documents returned when a call leaves the
// limit unset.
const DefaultLimit = 5

// Mode records how one retrieval call was answered.
type Mode string

const (
	ModeSemantic Mode = "semantic"
	ModeKeyword  Mode = "keyword"
)

// Resolver produces embeddings for text.
type Resolver interface {
	Resolve(ctx context.Context, text string) resolve.Resolution
	Dimensions() int
}

// Config holds configuration for the adapter.
type Config struct {
	// KeywordOnly answers every retrieval with keyword scoring.
	KeywordOnly bool
}

// Adapter combines the resolver, the vector store and the keyword retriever.
type Adapter struct {
	store    vector.Store
	resolver Resolver
	keyword  *keyword.Retriever
	config   Config
	logger   *zap.Logger

	// now is swapped in tests.
	now func() time.Time
}

// New creates an adapter.
func New(store vector.Store, resolver Resolver, c Config, logger *zap.Logger) *Adapter {
	return &Adapter{
		store:    store,
		resolver: resolver,
		keyword:  keyword.New(store),
		config:   c,
		logger:   logger,
		now:      time.Now,
	}
}

// DocumentID derives the vector id of a document:
// <namespaceId>_<type>_<ref>, falling back to the unix millis of now when
// the type carries no identifier.
func DocumentID(md vector.Metadata, now time.Time) string {
	suffix := md.Ref
	if suffix == "" || md.Type.RefKey() == "" {
		suffix = strconv.FormatInt(now.UnixMilli(), 10)
	}
	return md.NamespaceID + "_" + string(md.Type) + "_" + suffix
}

// StoreDocument stores doc under a derived id with the given embedding.
// Returns false when the document is rejected or could not be persisted.
func (a *Adapter) StoreDocument(ctx context.Context, doc vector.Document, embedding []float32) bool {
	v, err := a.toVector(doc, embedding, a.now())
	if err != nil {
		a.logger.Warn("rejecting document", zap.Error(err))
		return false
	}
	return a.store.Upsert(ctx, []vector.Vector{v})
}

func (a *Adapter) toVector(doc vector.Document, embedding []float32, now time.Time) (vector.Vector, error) {
	md := doc.Metadata.Clone()
	if doc.Content != "" {
		md.Content = doc.Content
	}

	if md.NamespaceID == "" {
		return vector.Vector{}, vector.ErrMissingNamespace
	}
	if !md.Type.Valid() {
		return vector.Vector{}, fmt.Errorf("unknown document type %q", md.Type)
	}

	return vector.Vector{
		ID:       DocumentID(md, now),
		Values:   embedding,
		Metadata: md,
	}, nil
}

// RetrieveRelevant returns up to limit documents relevant to text. It never
// fails; an empty result is valid.
func (a *Adapter) RetrieveRelevant(ctx context.Context, namespaceID, text string, limit int) []vector.Document {
	docs, _ := a.RetrieveWithMode(ctx, namespaceID, text, limit)
	return docs
}

// RetrieveWithMode is RetrieveRelevant that also reports which mode
// answered the call.
func (a *Adapter) RetrieveWithMode(ctx context.Context, namespaceID, text string, limit int) ([]vector.Document, Mode) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	ans := a.answer(ctx, namespaceID, text, limit)
	metrics.RetrievalRequests.WithLabelValues(string(ans.mode)).Inc()

	a.logger.Debug("retrieval answered",
		zap.String("namespace", namespaceID),
		zap.String("mode", string(ans.mode)),
		zap.Int("documents", len(ans.docs)),
	)
	return ans.docs, ans.mode
}

type outcome struct {
	mode Mode
	docs []vector.Document
}

// answer makes the per-call decision between semantic and keyword
// retrieval. Nothing about a degraded call is remembered.
func (a *Adapter) answer(ctx context.Context, namespaceID, text string, limit int) outcome {
	if a.config.KeywordOnly || a.resolver == nil {
		return a.keywordAnswer(ctx, namespaceID, text, limit)
	}

	res := a.resolver.Resolve(ctx, text)
	if !res.OK() {
		return a.keywordAnswer(ctx, namespaceID, text, limit)
	}

	matches, err := a.store.Query(ctx, vector.QueryRequest{
		Vector:          res.Values,
		Filter:          vector.NamespaceFilter(namespaceID),
		TopK:            limit,
		IncludeMetadata: true,
	})
	if err != nil {
		a.logger.Warn("semantic query failed, using keyword retrieval",
			zap.String("namespace", namespaceID),
			zap.Error(err),
		)
		return a.keywordAnswer(ctx, namespaceID, text, limit)
	}

	return outcome{mode: ModeSemantic, docs: toDocuments(matches)}
}

func (a *Adapter) keywordAnswer(ctx context.Context, namespaceID, text string, limit int) outcome {
	matches, err := a.keyword.SimpleRetrieve(ctx, namespaceID, text, limit)
	if err != nil {
		a.logger.Warn("keyword retrieval failed",
			zap.String("namespace", namespaceID),
			zap.Error(err),
		)
		return outcome{mode: ModeKeyword, docs: []vector.Document{}}
	}
	return outcome{mode: ModeKeyword, docs: toDocuments(matches)}
}

func toDocuments(matches []vector.Match) []vector.Document {
	docs := make([]vector.Document, 0, len(matches))
	for _, m := range matches {
		docs = append(docs, vector.DocumentFromMatch(m))
	}
	return docs
}

// DeleteBusinessData removes every vector of the namespace. Removing nothing
// is success.
func (a *Adapter) DeleteBusinessData(ctx context.Context, namespaceID string) bool {
	removed, err := a.store.DeleteMany(ctx, vector.NamespaceFilter(namespaceID))
	if err != nil {
		a.logger.Error("deleting business data",
			zap.String("namespace", namespaceID),
			zap.Error(err),
		)
		return false
	}

	a.logger.Info("business data deleted",
		zap.String("namespace", namespaceID),
		zap.Int("removed", removed),
	)
	return true
}

// IndexDocuments replaces the namespace's vectors with embeddings of docs.
// Every document must resolve to an embedding; otherwise nothing is written
// and an error wrapping vector.ErrEmbedding is returned. Vectors of the
// namespace that docs no longer produce are removed after the upsert.
func (a *Adapter) IndexDocuments(ctx context.Context, namespaceID string, docs []vector.Document) error {
	if a.resolver == nil {
		return fmt.Errorf("%w: no embedding resolver configured", vector.ErrEmbedding)
	}

	now := a.now()
	fresh := make([]vector.Vector, 0, len(docs))
	keep := make(map[string]struct{}, len(docs))

	for _, doc := range docs {
		doc.Metadata.NamespaceID = namespaceID

		res := a.resolver.Resolve(ctx, doc.Content)
		if !res.OK() {
			return fmt.Errorf("%w: document of type %s in namespace %q", vector.ErrEmbedding, doc.Metadata.Type, namespaceID)
		}

		v, err := a.toVector(doc, res.Values, now)
		if err != nil {
			return fmt.Errorf("building vector: %w", err)
		}
		fresh = append(fresh, v)
		keep[v.ID] = struct{}{}
	}

	existing, err := a.store.List(ctx, namespaceID)
	if err != nil {
		return fmt.Errorf("listing namespace %q: %w", namespaceID, err)
	}

	if len(fresh) > 0 && !a.store.Upsert(ctx, fresh) {
		return fmt.Errorf("%w: namespace %q", vector.ErrPersist, namespaceID)
	}

	var staleIDs []string
	for _, v := range existing {
		if _, ok := keep[v.ID]; !ok {
			staleIDs = append(staleIDs, v.ID)
		}
	}
	stale, err := a.store.DeleteIDs(ctx, namespaceID, staleIDs)
	if err != nil {
		return fmt.Errorf("removing stale vectors of namespace %q: %w", namespaceID, err)
	}

	a.logger.Info("namespace indexed",
		zap.String("namespace", namespaceID),
		zap.Int("documents", len(fresh)),
		zap.Int("stale_removed", stale),
	)
	return nil
}
