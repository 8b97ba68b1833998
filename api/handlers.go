package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/retrieval"
	"github.com/papercomputeco/nook/pkg/vector"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StoreDocumentRequest is the body of POST /v1/documents.
type StoreDocumentRequest struct {
	Document  vector.Document `json:"document"`
	Embedding []float32       `json:"embedding"`
}

// StoreDocumentResponse reports whether the document was stored.
type StoreDocumentResponse struct {
	Stored bool `json:"stored"`
}

// RetrieveResponse carries ranked documents and how they were found.
type RetrieveResponse struct {
	NamespaceID string            `json:"namespace_id"`
	Query       string            `json:"query"`
	Mode        retrieval.Mode    `json:"mode"`
	Documents   []vector.Document `json:"documents"`
}

// DeleteResponse reports whether the namespace was removed.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// SyncResponse reports whether a sync was scheduled. False means one was
// already pending for the namespace.
type SyncResponse struct {
	Queued bool `json:"queued"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStoreDocument handles POST /v1/documents.
func (s *Server) handleStoreDocument(c *fiber.Ctx) error {
	var req StoreDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.Document.Metadata.NamespaceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "document.metadata.namespaceId is required"})
	}

	stored := s.config.Retriever.StoreDocument(c.Context(), req.Document, req.Embedding)
	if !stored {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(StoreDocumentResponse{Stored: false})
	}

	return c.Status(fiber.StatusCreated).JSON(StoreDocumentResponse{Stored: true})
}

// handleRetrieve handles GET /v1/namespaces/:id/retrieve.
// Query parameters:
//   - query (required): the question text
//   - limit (optional, default 5): number of documents to return
func (s *Server) handleRetrieve(c *fiber.Ctx) error {
	namespaceID := c.Params("id")

	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query parameter is required"})
	}

	limit := retrieval.DefaultLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a positive integer"})
		}
		limit = parsed
	}

	docs, mode := s.config.Retriever.RetrieveWithMode(c.Context(), namespaceID, query, limit)
	if docs == nil {
		docs = []vector.Document{}
	}

	s.logger.Debug("retrieve request",
		zap.String("namespace", namespaceID),
		zap.String("mode", string(mode)),
		zap.Int("results", len(docs)),
	)

	return c.JSON(RetrieveResponse{
		NamespaceID: namespaceID,
		Query:       query,
		Mode:        mode,
		Documents:   docs,
	})
}

// handleDeleteNamespace handles DELETE /v1/namespaces/:id.
func (s *Server) handleDeleteNamespace(c *fiber.Ctx) error {
	namespaceID := c.Params("id")

	if !s.config.Retriever.DeleteBusinessData(c.Context(), namespaceID) {
		return c.Status(fiber.StatusInternalServerError).JSON(DeleteResponse{Deleted: false})
	}

	return c.JSON(DeleteResponse{Deleted: true})
}

// handleSync handles POST /v1/namespaces/:id/sync. The sync runs ahead of
// the queue unless immediate=false.
func (s *Server) handleSync(c *fiber.Ctx) error {
	if s.config.Syncer == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "sync is not configured: a system of record is required"})
	}

	immediate := true
	if v := c.Query("immediate"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "immediate must be a boolean"})
		}
		immediate = parsed
	}

	queued := s.config.Syncer.Enqueue(c.Params("id"), immediate)
	return c.Status(fiber.StatusAccepted).JSON(SyncResponse{Queued: queued})
}

// handleSyncStats handles GET /v1/stats/sync.
func (s *Server) handleSyncStats(c *fiber.Ctx) error {
	if s.config.Syncer == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "sync is not configured: a system of record is required"})
	}

	return c.JSON(s.config.Syncer.Stats(c.Context()))
}

// handleStoreStats handles GET /v1/stats/store.
func (s *Server) handleStoreStats(c *fiber.Ctx) error {
	return c.JSON(s.config.Store.Stats(c.Context()))
}
