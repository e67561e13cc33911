package api

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/causa-registry/pkg/kit"
	"github.com/hazyhaar/causa-registry/pkg/lookup"
)

// RegisterMCPTools registers the lookup MCP tools on the server. mw wraps
// each endpoint by name; nil means no middleware.
func RegisterMCPTools(srv *server.MCPServer, svc *lookup.Service, mw func(name string) kit.Middleware) {
	if mw == nil {
		mw = func(string) kit.Middleware { return kit.Nop }
	}
	ep := newEndpoints(svc, mw)

	kit.RegisterMCPTool(srv, mcp.NewTool("resolve_cause",
		mcp.WithDescription("Return the canonical form of a raw claim cause label, with the correction type and similarity."),
		mcp.WithString("label", mcp.Required(), mcp.Description("The raw cause label")),
	), ep.resolve, func(req mcp.CallToolRequest) (any, error) {
		label, _ := req.GetArguments()["label"].(string)
		return &resolveReq{Label: label}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("resolve_batch",
		mcp.WithDescription("Resolve up to 100 raw cause labels at once."),
		mcp.WithString("labels", mcp.Required(), mcp.Description("Raw cause labels separated by '|' (labels may contain commas)")),
	), ep.batch, func(req mcp.CallToolRequest) (any, error) {
		raw, _ := req.GetArguments()["labels"].(string)
		labels := strings.Split(raw, "|")
		for i := range labels {
			labels[i] = strings.TrimSpace(labels[i])
		}
		return &batchReq{Labels: labels}, nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("mapping_stats",
		mcp.WithDescription("Describe the loaded mapping: records, reference vocabulary, corrections per type, cache size."),
	), ep.stats, func(mcp.CallToolRequest) (any, error) {
		return nil, nil
	})
}
