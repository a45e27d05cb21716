package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalvix/mailrag/internal/pipeline"
)

// NewMCPServer exposes the query pipeline as MCP tools so editor and
// agent clients can ask questions over a user's synced records.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"mailrag",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("mailrag — grounded question answering over a user's synced mail, calendar, and documents."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("query",
			mcp.WithDescription("Answer a natural-language question from the user's synced records, with cited sources."),
			mcp.WithString("query", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithString("user_id", mcp.Description("User scope for retrieval"), mcp.Required()),
			mcp.WithNumber("top_k", mcp.Description("Retrieval breadth (default 20)")),
		),
		mcpQuery(deps),
	)

	s.AddTool(
		mcp.NewTool("load_user_data",
			mcp.WithDescription("Rebuild the in-memory record snapshot for a user from the sync database."),
			mcp.WithString("user_id", mcp.Description("User whose records to load"), mcp.Required()),
		),
		mcpLoadUserData(deps),
	)

	return s
}

func mcpQuery(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		topK := req.GetInt("top_k", 0)

		answer, err := deps.Pipeline.Answer(ctx, pipeline.Query{
			Text:   query,
			UserID: userID,
			TopK:   topK,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("query failed: %v", err)), nil
		}

		cited := make([]CitedRecord, 0, len(answer.Cited))
		for _, s := range answer.Cited {
			cited = append(cited, toCited(s))
		}
		payload, err := json.Marshal(QueryResponse{Answer: answer.Text, Documents: cited})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal response: %v", err)), nil
		}
		return mcpText(string(payload)), nil
	}
}

func mcpLoadUserData(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}

		stats, err := deps.Builder.Rebuild(ctx, userID)
		if err != nil {
			return mcpError(fmt.Sprintf("loading user data failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Loaded %d records for user %s", stats.Total, userID)), nil
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
