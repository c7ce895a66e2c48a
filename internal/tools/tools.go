package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/starscope/internal/db"
)

// Version is reported to MCP clients and by the CLI.
const Version = "0.1.0"

// Server wraps the MCP server with tool handlers over one database.
type Server struct {
	mcp *mcp.Server

	// mu serialises every tool call; db.DB is single-threaded.
	mu        sync.Mutex
	db        *db.DB
	writePath string
}

// NewServer creates a new MCP server with all tools registered. When
// writePath is non-empty the update tool saves the database there.
func NewServer(d *db.DB, writePath string) *Server {
	srv := &Server{
		db:        d,
		writePath: writePath,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "starscope",
				Version: Version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves MCP over stdin/stdout until the client disconnects or ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "query",
		Description: "Look up a symbol in one table of the index. The pattern is a '::'-qualified name: the last component is the symbol, the leading components must match the end of the symbol's enclosing scope (e.g. 'File::mtime' finds mtime defined in File or Util::File). Returns file, line, scope and source line for every match.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"table": {
					"type": "string",
					"description": "Table to search: defs, calls, imports, requires, includes or assigns"
				},
				"pattern": {
					"type": "string",
					"description": "Symbol name, optionally scope-qualified with '::' (e.g. 'mtime', 'File::mtime')"
				}
			},
			"required": ["table", "pattern"]
		}`),
	}, s.handleQuery)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "summary",
		Description: "Return the number of distinct symbols per table, the indexed roots and the number of indexed files.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleSummary)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "dump_table",
		Description: "Return every entry of one table, ordered by symbol, file and line.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"table": {
					"type": "string",
					"description": "Table to dump"
				},
				"limit": {
					"type": "integer",
					"description": "Max entries (default 500)"
				}
			},
			"required": ["table"]
		}`),
	}, s.handleDumpTable)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "update",
		Description: "Re-index changed, added and deleted files under the indexed roots. Unchanged files are skipped by content hash. Files that fail to read or parse keep their previous entries and are listed under 'failures'.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleUpdate)
}

// jsonResult marshals data to JSON and returns as tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if req.Params.Arguments == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	v, ok := args[key]
	if !ok {
		return defaultVal
	}
	f, ok := v.(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}
