package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/starscope/internal/db"
)

// Refresh updates the database and saves it to the write path when
// anything changed. The update tool runs through it.
func (s *Server) Refresh(ctx context.Context) (*db.Report, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.db.Update(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("update failed: %w", err)
	}
	if s.writePath == "" || !report.Changed() {
		return report, "", nil
	}
	if err := s.db.Save(s.writePath); err != nil {
		slog.Warn("tools.update.save.err", "path", s.writePath, "err", err)
		return report, "", fmt.Errorf("save failed: %w", err)
	}
	return report, s.writePath, nil
}

func (s *Server) handleUpdate(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, saved, err := s.Refresh(ctx)
	if err != nil {
		return errResult(err.Error()), nil
	}

	failures := make([]map[string]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		failures = append(failures, map[string]string{"path": f.Path, "error": f.Err.Error()})
	}

	s.mu.Lock()
	summary := s.db.Summary()
	s.mu.Unlock()

	return jsonResult(map[string]any{
		"added":     report.Added,
		"modified":  report.Modified,
		"removed":   report.Removed,
		"unchanged": report.Unchanged,
		"failures":  failures,
		"saved_to":  saved,
		"summary":   summary,
	}), nil
}
