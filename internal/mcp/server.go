// Package mcp exposes the company catalog and the analysis action as
// Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/seenimoa/stocksentiment/internal/dashboard"
	"github.com/seenimoa/stocksentiment/internal/registry"
)

// ServerName is the name advertised to MCP clients.
const ServerName = "stocksentiment"

// NewServer builds an MCP server with the list_companies and
// analyze_company tools registered.
func NewServer(ctrl *dashboard.Controller, version string) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version, server.WithToolCapabilities(true))
	RegisterTools(s, ctrl)
	return s
}

// ServeStdio serves s on stdin/stdout until stdin closes.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// NewHTTPHandler serves s over streamable HTTP, for mounting on the API router.
func NewHTTPHandler(s *server.MCPServer) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s, server.WithStateLess(true))
}

// RegisterTools adds the tools to s.
func RegisterTools(s *server.MCPServer, ctrl *dashboard.Controller) {
	s.AddTool(listCompaniesTool(), handleListCompanies(ctrl))
	s.AddTool(analyzeCompanyTool(), handleAnalyzeCompany(ctrl))
}

// --- Tool definitions ---

func listCompaniesTool() mcp.Tool {
	return mcp.NewTool("list_companies",
		mcp.WithDescription("List the companies available for sentiment analysis, optionally filtered by sector."),
		mcp.WithString("sector", mcp.Description("Sector to filter by, e.g. 'Technology'. Omit or pass 'All' for every company.")),
	)
}

func analyzeCompanyTool() mcp.Tool {
	return mcp.NewTool("analyze_company",
		mcp.WithDescription("Score recent news headlines for a company, fetch its daily prices and return the buy/sell/hold advisory with metrics and the headline table."),
		mcp.WithString("ticker", mcp.Required(), mcp.Description("Ticker symbol of a listed company, e.g. 'AAPL'.")),
		mcp.WithNumber("lookback_days", mcp.Description("Days of history to analyze, 1 to 30 (default: 2).")),
	)
}

// --- Handlers ---

func handleListCompanies(ctrl *dashboard.Controller) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sector := request.GetString("sector", registry.AllSectors)
		companies := ctrl.Registry().ListBySector(sector)
		if len(companies) == 0 {
			return errorResult("no companies in sector " + sector), nil
		}
		return jsonResult(companies)
	}
}

func handleAnalyzeCompany(ctrl *dashboard.Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil {
			return errorResult("ticker is required"), nil
		}
		days := request.GetInt("lookback_days", 0)
		if days < 0 || days > dashboard.MaxLookbackDays {
			return errorResult(dashboard.ErrInvalidLookback.Error()), nil
		}

		a, err := ctrl.Analyze(ctx, dashboard.Request{Ticker: ticker, LookbackDays: days})
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return jsonResult(a)
	}
}

// --- Helpers ---

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
