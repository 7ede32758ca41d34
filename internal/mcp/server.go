package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/countrycache/internal/config"
	"github.com/hpungsan/countrycache/internal/db"
	"github.com/hpungsan/countrycache/internal/ops"
	"github.com/hpungsan/countrycache/internal/report"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"country_refresh": {
		def:     refreshToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRefresh },
	},
	"country_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"country_get": {
		def:     getToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGet },
	},
	"country_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"country_status": {
		def:     statusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
}

// AllToolNames returns every registered tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server exposing the country tools.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(store *db.Store, refresher *ops.Refresher, renderer *report.Renderer, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"countrycache",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(store, refresher, renderer, cfg)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run serves the MCP server over stdio until stdin closes.
func Run(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
