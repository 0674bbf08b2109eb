package main

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerTools registers all MCP tools on the server.
func registerTools(s *server.MCPServer, d *toolDeps) {
	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createRunUITestTool(), handleRunUITest(d))
	s.AddTool(createListResultsTool(), handleListResults(d))
}

func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the moontest MCP server version. Use this to verify connectivity."),
	)
}

func createRunUITestTool() mcp.Tool {
	return mcp.NewTool("run_ui_test",
		mcp.WithDescription("Open a page in a headless browser, screenshot it and ask a vision model a question about what is shown. Returns the model's answer next to the expected answer. Pass either url and question for a single check, or suite with a TOML suite document for several tests."),
		mcp.WithString("name", mcp.Description("Test name, used in screenshot filenames (default: 'mcp')")),
		mcp.WithString("url", mcp.Description("Page to test. {{base_url}} is replaced by the fixture server address when it runs.")),
		mcp.WithString("question", mcp.Description("Natural-language question about the page, e.g. 'Is there a blue Submit button?'")),
		mcp.WithString("expected", mcp.Description("Expected answer, recorded for later comparison")),
		mcp.WithNumber("screenshot_interval_ms", mcp.Description("Capture a burst spaced this many milliseconds apart and answer from the last frame. Use for animations.")),
		mcp.WithNumber("viewport_width", mcp.Description("Viewport width override in CSS pixels")),
		mcp.WithNumber("viewport_height", mcp.Description("Viewport height override in CSS pixels")),
		mcp.WithString("suite", mcp.Description("TOML suite document with [[test]] and [[test.query]] tables. Takes precedence over url/question.")),
	)
}

func createListResultsTool() mcp.Tool {
	return mcp.NewTool("list_results",
		mcp.WithDescription("List persisted test results, most recent last."),
		mcp.WithString("test_name", mcp.Description("Only include results for this test name")),
		mcp.WithNumber("limit", mcp.Description("Maximum results to return, counted from the most recent (default: 10)")),
	)
}
