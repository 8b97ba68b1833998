package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) HandleRetrieve(ctx context.Context, input RetrieveInput) (*mcp.CallToolResult, RetrieveOutput, error) {
	return s.handleRetrieve(ctx, nil, input)
}
