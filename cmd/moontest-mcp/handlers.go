package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/moontest/internal/common"
	"github.com/bobmcallan/moontest/internal/interfaces"
	"github.com/bobmcallan/moontest/internal/models"
	"github.com/bobmcallan/moontest/internal/suite"
)

// testRunner runs tests in order. *app.App implements it.
type testRunner interface {
	RunAll(ctx context.Context, tests []models.Test) []*models.TestResult
}

type toolDeps struct {
	runner  testRunner
	store   interfaces.ResultStore
	baseURL string
	logger  *common.Logger
}

// --- Helpers ---

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

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Error encoding response: %v", err))
	}
	return textResult(string(data))
}

// testsFromRequest builds the tests a run_ui_test call asks for.
func testsFromRequest(request mcp.CallToolRequest) ([]models.Test, error) {
	if doc := request.GetString("suite", ""); doc != "" {
		tests, err := suite.Parse([]byte(doc))
		if err != nil {
			return nil, err
		}
		if len(tests) == 0 {
			return nil, fmt.Errorf("suite contains no [[test]] tables")
		}
		return tests, nil
	}

	url := strings.TrimSpace(request.GetString("url", ""))
	question := strings.TrimSpace(request.GetString("question", ""))
	if url == "" || question == "" {
		return nil, fmt.Errorf("url and question are required when no suite is given")
	}

	query := models.NewQuery(question, request.GetString("expected", ""))
	if interval := request.GetInt("screenshot_interval_ms", 0); interval > 0 {
		query = models.NewDynamicQuery(question, query.ExpectedResponse, interval)
	}

	test := models.Test{
		Name:    request.GetString("name", "mcp"),
		URL:     url,
		Queries: []models.Query{query},
	}
	w, h := request.GetInt("viewport_width", 0), request.GetInt("viewport_height", 0)
	if w > 0 || h > 0 {
		test.Viewport = &models.Viewport{Width: w, Height: h}
	}
	if issues := suite.Validate(test); len(issues) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(issues, "; "))
	}
	return []models.Test{test}, nil
}

// --- Handlers ---

func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return textResult(fmt.Sprintf("moontest MCP Server\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			common.Version, common.Build, common.GitCommit)), nil
	}
}

func handleRunUITest(d *toolDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tests, err := testsFromRequest(request)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}

		if suite.NeedsBaseURL(tests) {
			if d.baseURL == "" {
				return errorResult("Error: {{base_url}} used but the fixture server is not running (start with -serve)"), nil
			}
			tests = suite.WithBaseURL(tests, d.baseURL)
		}

		d.logger.Info().Int("tests", len(tests)).Msg("run_ui_test")
		results := d.runner.RunAll(ctx, tests)

		records := make([]models.Record, 0, len(results))
		failed := false
		for _, r := range results {
			records = append(records, r.ToRecord())
			if r.Error != nil {
				failed = true
			}
		}

		res := jsonResult(records)
		if failed {
			res.IsError = true
		}
		return res, nil
	}
}

func handleListResults(d *toolDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		records, err := d.store.Load(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("Error reading results: %v", err)), nil
		}

		if name := request.GetString("test_name", ""); name != "" {
			filtered := records[:0:0]
			for _, r := range records {
				if r.TestName == name {
					filtered = append(filtered, r)
				}
			}
			records = filtered
		}

		limit := request.GetInt("limit", 10)
		if limit > 0 && len(records) > limit {
			records = records[len(records)-limit:]
		}

		if len(records) == 0 {
			return textResult("No results found."), nil
		}
		return jsonResult(records), nil
	}
}
