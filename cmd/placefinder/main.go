package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/placefinder/internal/app"
	"github.com/ternarybob/placefinder/internal/common"
	"github.com/ternarybob/placefinder/internal/server"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
	consoleMode  = flag.Bool("console", false, "Run the interactive terminal presenter alongside the server")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Placefinder version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	// Startup sequence: config (defaults -> files -> env) -> CLI overrides -> logger -> banner
	if len(configFiles) == 0 {
		if _, err := os.Stat("placefinder.toml"); err == nil {
			configFiles = append(configFiles, "placefinder.toml")
		} else if _, err := os.Stat("deployments/local/placefinder.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/placefinder.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		common.GetLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, finalPort, *serverHost)

	// The presenter owns the terminal, so logs go to file only
	if *consoleMode {
		config.Logging.Output = []string{"file"}
	}

	logger := common.InitLogger(config)
	common.InstallCrashHandler("logs")

	if !*consoleMode {
		common.PrintBanner(config, logger)
	}

	logger.Info().
		Strs("config_files", configFiles).
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Bool("console", *consoleMode).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	srv := server.New(application)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	consoleDone := make(chan error, 1)
	if *consoleMode {
		presenter := NewConsole(application.SearchService, application.EventService, os.Stdout, logger)
		go func() {
			consoleDone <- presenter.Run(context.Background(), os.Stdin)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info().Msg("Interrupt signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("Server failed")
		}
	case err := <-consoleDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Console failed")
		}
		logger.Info().Msg("Console closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}
