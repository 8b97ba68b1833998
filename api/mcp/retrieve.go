package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/nook/pkg/retrieval"
)

var (
	retrieveToolName    = "retrieve_relevant"
	retrieveDescription = "Retrieve the business knowledge most relevant to a customer question: services, prices, opening hours, FAQs, promotions and contact details of one business."
)

// RetrieveInput represents the input arguments for the retrieve_relevant tool.
type RetrieveInput struct {
	NamespaceID string `json:"namespace_id" jsonschema:"the business id whose knowledge to search"`
	Query       string `json:"query" jsonschema:"the customer question"`
	Limit       int    `json:"limit,omitempty" jsonschema:"number of documents to return (default: 5)"`
}

// RetrieveResult is one retrieved document.
type RetrieveResult struct {
	Content string  `json:"content"`
	Type    string  `json:"type"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score"`
}

// RetrieveOutput represents the output of the retrieve_relevant tool.
type RetrieveOutput struct {
	NamespaceID string           `json:"namespace_id"`
	Query       string           `json:"query"`
	Mode        string           `json:"mode"`
	Results     []RetrieveResult `json:"results"`
	Count       int              `json:"count"`
}

// handleRetrieve processes a retrieve_relevant request.
func (s *Server) handleRetrieve(ctx context.Context, _ *mcp.CallToolRequest, input RetrieveInput) (*mcp.CallToolResult, RetrieveOutput, error) {
	if input.NamespaceID == "" {
		return nil, RetrieveOutput{}, errors.New("namespace_id is required")
	}
	if input.Query == "" {
		return nil, RetrieveOutput{}, errors.New("query is required")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = retrieval.DefaultLimit
	}

	docs, mode := s.config.Retriever.RetrieveWithMode(ctx, input.NamespaceID, input.Query, limit)

	s.config.Logger.Debug("MCP retrieve request",
		zap.String("namespace", input.NamespaceID),
		zap.String("mode", string(mode)),
		zap.Int("results", len(docs)),
	)

	results := make([]RetrieveResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, RetrieveResult{
			Content: doc.Content,
			Type:    string(doc.Metadata.Type),
			Source:  doc.Metadata.Source,
			Score:   doc.Score,
		})
	}

	return nil, RetrieveOutput{
		NamespaceID: input.NamespaceID,
		Query:       input.Query,
		Mode:        string(mode),
		Results:     results,
		Count:       len(results),
	}, nil
}
