// Package mcp provides an MCP (Model Context Protocol) server for maid.
// This allows AI agents to query extracted documentation through MCP tools
// instead of reading the emitted units.
package mcp

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/maid-docs/maid/internal/catalog"
	"github.com/maid-docs/maid/internal/docs"
	"github.com/maid-docs/maid/internal/emit"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Server wraps the MCP server with catalog-backed tools
type Server struct {
	mcpServer    *server.MCPServer
	catalog      *catalog.Catalog
	log          *zap.Logger
	tools        map[string]bool
	lastActivity time.Time
	timeout      time.Duration
	mu           sync.RWMutex
}

// Config holds server configuration
type Config struct {
	Tools   []string      // Which tools to expose (empty = all)
	Timeout time.Duration // Inactivity timeout (0 = no timeout)
	Logger  *zap.Logger
}

// AllTools lists all available tools
var AllTools = []string{"docs_show", "docs_find", "docs_sets"}

// New creates a new MCP server answering from cat. The caller keeps
// ownership of the catalog.
func New(cat *catalog.Catalog, cfg Config) (*Server, error) {
	if cat == nil {
		return nil, errors.WithHint(errors.New("no catalog"),
			"run 'maid extract' with the catalog enabled first")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		mcpServer:    server.NewMCPServer("maid", Version, server.WithToolCapabilities(false)),
		catalog:      cat,
		log:          log,
		tools:        make(map[string]bool),
		lastActivity: time.Now(),
		timeout:      cfg.Timeout,
	}

	toolsToRegister := cfg.Tools
	if len(toolsToRegister) == 0 {
		toolsToRegister = AllTools
	}
	for _, name := range toolsToRegister {
		if err := s.registerTool(name); err != nil {
			return nil, errors.Wrapf(err, "register tool %s", name)
		}
		s.tools[name] = true
	}
	return s, nil
}

func (s *Server) registerTool(name string) error {
	switch name {
	case "docs_show":
		s.mcpServer.AddTool(mcp.NewTool("docs_show",
			mcp.WithDescription(toolSchemaRegistry[name].Description),
			mcp.WithString("id", mcp.Required(), mcp.Description("Member id, e.g. Shop/Acme.Data/Repo`1.Get(int)")),
		), s.handleShow)
	case "docs_find":
		s.mcpServer.AddTool(mcp.NewTool("docs_find",
			mcp.WithDescription(toolSchemaRegistry[name].Description),
			mcp.WithString("pattern", mcp.Required(), mcp.Description("Name or qualified name; * and ? are wildcards")),
			mcp.WithString("kind", mcp.Description("Filter by kind: type, method, constructor, property, field")),
			mcp.WithString("doc_id", mcp.Description("Restrict to one document set")),
			mcp.WithNumber("limit", mcp.Description("Maximum results (default: 50)")),
		), s.handleFind)
	case "docs_sets":
		s.mcpServer.AddTool(mcp.NewTool("docs_sets",
			mcp.WithDescription(toolSchemaRegistry[name].Description),
		), s.handleSets)
	default:
		return errors.Newf("unknown tool: %s", name)
	}
	return nil
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	if s.timeout > 0 {
		go s.timeoutChecker()
	}
	return server.ServeStdio(s.mcpServer)
}

// timeoutChecker monitors for inactivity and exits if timeout exceeded
func (s *Server) timeoutChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		elapsed := time.Since(s.lastActivity)
		s.mu.RUnlock()

		if elapsed > s.timeout {
			s.log.Info("mcp server idle; exiting", zap.Duration("timeout", s.timeout))
			os.Exit(0)
		}
	}
}

func (s *Server) updateActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// ListTools returns the registered tools, sorted
func (s *Server) ListTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]string, 0, len(s.tools))
	for t := range s.tools {
		tools = append(tools, t)
	}
	sort.Strings(tools)
	return tools
}

// ToolSchema describes a tool's name, description, and parameters.
type ToolSchema struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Parameters  []ParameterSchema `json:"parameters" yaml:"parameters"`
}

// ParameterSchema describes a single tool parameter.
type ParameterSchema struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required" yaml:"required"`
}

// toolSchemaRegistry mirrors the mcp.NewTool definitions in registerTool.
var toolSchemaRegistry = map[string]ToolSchema{
	"docs_show": {
		Name:        "docs_show",
		Description: "Show the documentation model of one member, with resolved references.",
		Parameters: []ParameterSchema{
			{Name: "id", Type: "string", Description: "Member id", Required: true},
		},
	},
	"docs_find": {
		Name:        "docs_find",
		Description: "Search extracted members by name pattern.",
		Parameters: []ParameterSchema{
			{Name: "pattern", Type: "string", Description: "Name or qualified name; * and ? are wildcards", Required: true},
			{Name: "kind", Type: "string", Description: "Filter by kind: type, method, constructor, property, field"},
			{Name: "doc_id", Type: "string", Description: "Restrict to one document set"},
			{Name: "limit", Type: "number", Description: "Maximum results (default: 50)"},
		},
	},
	"docs_sets": {
		Name:        "docs_sets",
		Description: "List the document sets stored in the catalog.",
	},
}

// GetToolSchemas returns schemas for all registered tools, sorted by name.
func (s *Server) GetToolSchemas() []ToolSchema {
	names := s.ListTools()
	schemas := make([]ToolSchema, 0, len(names))
	for _, name := range names {
		if schema, ok := toolSchemaRegistry[name]; ok {
			schemas = append(schemas, schema)
		}
	}
	return schemas
}

// CallTool dispatches a tool call by name with the given arguments.
// Returns the JSON result string or an error.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	s.mu.RLock()
	registered := s.tools[name]
	s.mu.RUnlock()

	if !registered {
		return "", errors.Newf("unknown tool: %s", name)
	}

	switch name {
	case "docs_show":
		id, _ := args["id"].(string)
		if id == "" {
			return "", errors.New("id parameter is required")
		}
		return s.executeShow(ctx, id)

	case "docs_find":
		opts, err := findOptions(args)
		if err != nil {
			return "", err
		}
		return s.executeFind(ctx, opts)

	case "docs_sets":
		return s.executeSets(ctx)
	}
	return "", errors.Newf("unknown tool: %s", name)
}

func findOptions(args map[string]any) (catalog.FindOptions, error) {
	var opts catalog.FindOptions
	opts.Pattern, _ = args["pattern"].(string)
	if opts.Pattern == "" {
		return opts, errors.New("pattern parameter is required")
	}
	if k, _ := args["kind"].(string); k != "" {
		kind, err := docs.ParseKind(k)
		if err != nil {
			return opts, err
		}
		opts.Kind = kind
	}
	opts.DocID, _ = args["doc_id"].(string)
	if l, ok := args["limit"].(float64); ok {
		opts.Limit = int(l)
	}
	return opts, nil
}

func (s *Server) handleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handle(ctx, "docs_show", req)
}

func (s *Server) handleFind(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handle(ctx, "docs_find", req)
}

func (s *Server) handleSets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handle(ctx, "docs_sets", req)
}

// handle runs a tool and reports failures as tool errors.
func (s *Server) handle(ctx context.Context, name string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	result, err := s.CallTool(ctx, name, req.GetArguments())
	if err != nil {
		s.log.Debug("tool call failed", zap.String("tool", name), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(result), nil
}

func (s *Server) executeShow(ctx context.Context, id string) (string, error) {
	m, err := s.catalog.Get(ctx, docs.MemberID(id))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return "", errors.WithHint(err, "use docs_find to search by name")
		}
		return "", err
	}
	return toJSON(m)
}

type findResult struct {
	Pattern string           `json:"pattern"`
	Count   int              `json:"count"`
	Results []catalog.Record `json:"results"`
}

func (s *Server) executeFind(ctx context.Context, opts catalog.FindOptions) (string, error) {
	records, err := s.catalog.Find(ctx, opts)
	if err != nil {
		return "", err
	}
	if records == nil {
		records = []catalog.Record{}
	}
	return toJSON(findResult{Pattern: opts.Pattern, Count: len(records), Results: records})
}

func (s *Server) executeSets(ctx context.Context) (string, error) {
	sets, err := s.catalog.Sets(ctx)
	if err != nil {
		return "", err
	}
	if sets == nil {
		sets = []catalog.SetInfo{}
	}
	return toJSON(map[string]any{"sets": sets})
}

func toJSON(v any) (string, error) {
	data, err := emit.Marshal(emit.FormatJSON, v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
