package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/starscope/internal/db"
)

type entryJSON struct {
	db.Entry
	QualifiedName string `json:"qualified_name"`
}

func toJSON(entries []db.Entry) []entryJSON {
	out := make([]entryJSON, len(entries))
	for i, e := range entries {
		out[i] = entryJSON{Entry: e, QualifiedName: e.QualifiedName()}
	}
	return out
}

func (s *Server) handleQuery(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	table := getStringArg(args, "table")
	pattern := getStringArg(args, "pattern")
	if table == "" || pattern == "" {
		return errResult("missing required 'table' and 'pattern' parameters"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.db.Query(table, pattern)
	if errors.Is(err, db.ErrUnknownTable) {
		return errResult(fmt.Sprintf("table '%s' doesn't exist (available: %v)", table, s.db.Tables())), nil
	}
	if err != nil {
		return errResult(fmt.Sprintf("query error: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"table":   table,
		"pattern": pattern,
		"results": toJSON(entries),
		"total":   len(entries),
	}), nil
}

func (s *Server) handleSummary(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return jsonResult(map[string]any{
		"tables": s.db.Summary(),
		"roots":  s.db.Roots(),
		"files":  len(s.db.Files()),
	}), nil
}

func (s *Server) handleDumpTable(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	table := getStringArg(args, "table")
	if table == "" {
		return errResult("missing required 'table' parameter"), nil
	}
	limit := getIntArg(args, "limit", 500)
	if limit <= 0 {
		limit = 500
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.db.DumpTable(table)
	if errors.Is(err, db.ErrUnknownTable) {
		return errResult(fmt.Sprintf("table '%s' doesn't exist (available: %v)", table, s.db.Tables())), nil
	}
	if err != nil {
		return errResult(fmt.Sprintf("dump error: %v", err)), nil
	}

	total := len(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return jsonResult(map[string]any{
		"table":     table,
		"entries":   toJSON(entries),
		"total":     total,
		"truncated": total > len(entries),
	}), nil
}
