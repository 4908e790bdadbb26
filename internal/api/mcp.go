package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/perttin/crewmatch/internal/match"
	"github.com/perttin/crewmatch/internal/store"
)

// NewMCPServer exposes the matching engine as MCP tools so agent clients
// can query the consultant pool directly.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"crewmatch",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("crewmatch — consultant matching engine: search consultants by free-text requirements and assemble project teams."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("match_consultants",
			mcp.WithDescription("Rank consultants against a free-text requirement. Returns scored candidates with human-readable reasons."),
			mcp.WithString("query", mcp.Description("Requirement text, e.g. 'senior React developer available now'"), mcp.Required()),
		),
		mcpMatchConsultants(deps),
	)

	s.AddTool(
		mcp.NewTool("assemble_team",
			mcp.WithDescription("Assemble a team for a set of roles. Each role gets an assigned consultant plus alternates; the same consultant fills two roles only when nobody else qualifies."),
			mcp.WithString("roles", mcp.Description(`JSON array of {"title","skills","seniority"} role objects`), mcp.Required()),
		),
		mcpAssembleTeam(deps),
	)

	s.AddTool(
		mcp.NewTool("list_consultants",
			mcp.WithDescription("List every consultant profile in the pool."),
		),
		mcpListConsultants(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"crewmatch://overview",
			"Pool Overview",
			mcp.WithResourceDescription("Consultant pool statistics: counts and most common skills"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceOverview(deps),
	)

	return s
}

func mcpMatchConsultants(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		results, err := deps.Matcher.Match(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("match failed: %v", err)), nil
		}

		b, err := json.Marshal(presentCandidates(results))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAssembleTeam(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rolesJSON, err := req.RequireString("roles")
		if err != nil {
			return mcpError("roles is required"), nil
		}

		var roles []roleSpec
		if err := json.Unmarshal([]byte(rolesJSON), &roles); err != nil {
			return mcpError(fmt.Sprintf("invalid roles JSON: %v", err)), nil
		}
		specs := make([]match.RoleSpec, len(roles))
		for i, role := range roles {
			specs[i] = role.toSpec()
		}

		assembled, err := deps.Assembler.Assemble(ctx, specs)
		if err != nil {
			return mcpError(fmt.Sprintf("assembly failed: %v", err)), nil
		}

		b, err := json.Marshal(presentTeam(assembled))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal team: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListConsultants(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		consultants, err := deps.Store.GetAll(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("listing consultants failed: %v", err)), nil
		}
		if consultants == nil {
			consultants = []match.Consultant{}
		}

		b, err := json.Marshal(consultants)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal consultants: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceOverview(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		consultants, err := deps.Store.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load consultants: %w", err)
		}

		b, err := json.Marshal(store.BuildOverview(consultants))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal overview: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
