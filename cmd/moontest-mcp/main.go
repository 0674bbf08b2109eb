// Command moontest-mcp exposes the UI test engine as MCP tools.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/moontest/internal/app"
	"github.com/bobmcallan/moontest/internal/common"
	"github.com/bobmcallan/moontest/internal/config"
	"github.com/bobmcallan/moontest/internal/fixtures"
)

// configPaths is a custom flag type that allows multiple -config flags.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

func main() {
	var configFiles configPaths
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	stdio := flag.Bool("stdio", false, "Use stdio transport")
	serve := flag.Bool("serve", false, "Serve fixture pages for {{base_url}} test URLs")
	envFile := flag.String("env", ".env", "Environment file loaded before config")
	flag.Parse()

	common.LoadVersionFromFile()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load environment: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Console logging goes to stderr, leaving stdout to the stdio transport.
	logger := common.NewLoggerFromConfig(cfg.Logging)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	var baseURL string
	if *serve {
		fx := fixtures.New(cfg.Fixtures.Root, cfg.Fixtures.Host, cfg.Fixtures.Port, logger)
		if err := fx.Start(); err != nil {
			logger.Error().Err(err).Msg("failed to start fixture server")
			os.Exit(1)
		}
		defer shutdownFixtures(fx, logger)
		baseURL = fx.URL()
	}

	mcpServer := server.NewMCPServer(
		cfg.MCP.Name,
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)
	registerTools(mcpServer, &toolDeps{
		runner:  application,
		store:   application.Store,
		baseURL: baseURL,
		logger:  logger,
	})

	if *stdio {
		if err := server.ServeStdio(mcpServer); err != nil {
			logger.Error().Err(err).Msg("stdio server error")
		}
		return
	}

	httpServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithStateLess(true),
	)

	logger.Info().Str("port", cfg.MCP.Port).Msg("starting MCP streamable HTTP")
	if err := httpServer.Start(":" + cfg.MCP.Port); err != nil {
		logger.Error().Err(err).Msg("http server error")
	}
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdownFixtures stops the fixture server, logging rather than returning
// any error since it runs on the way out.
func shutdownFixtures(fx shutdowner, logger *common.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fx.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("fixture server shutdown failed")
	}
}
