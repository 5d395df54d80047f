// Package main is the entry point for the vaultauth token fetcher.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/avessio/vaultauth/internal/observability"
	"github.com/avessio/vaultauth/internal/vault"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	timeout     time.Duration
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)
	manager := initManager(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
	defer cancel()

	token, err := manager.ClientToken(ctx)
	if err != nil {
		fatalWithSync(logger, "failed to obtain client token", observability.Error(err))
		return
	}

	logger.Info("obtained client token",
		observability.String("token", cfg.LogConfidentialityLevel.MaskWithTolerance(token, vault.ConfidentialityHigh)),
	)
	fmt.Println(token)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("VAULTAUTH_CONFIG_PATH", "configs/vaultauth.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("VAULTAUTH_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("VAULTAUTH_LOG_FORMAT", "json"),
		"Log format (json, console)")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout for token acquisition")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		timeout:     *timeout,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("vaultauth %s (commit %s, built %s)\n", version, gitCommit, buildTime)
}

// initLogger creates the logger from CLI flags.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *vault.Config {
	logger.Info("starting vaultauth",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := vault.LoadConfig(configPath)
	if err != nil {
		fatalWithSync(logger, "failed to load configuration", observability.Error(err))
		return nil // unreachable in production; allows test to continue
	}

	logger.Info("configuration loaded",
		observability.String("authMethod", cfg.AuthMethod.String()),
		observability.Duration("renewGracePeriod", cfg.GetRenewGracePeriod()),
	)
	return cfg
}

// initManager builds the store client and the token lifecycle manager.
// The Vault address and TLS settings come from the standard environment
// variables (VAULT_ADDR, VAULT_CACERT, VAULT_NAMESPACE, ...).
func initManager(cfg *vault.Config, logger observability.Logger) *vault.Manager {
	apiConfig := vaultapi.DefaultConfig()
	if err := apiConfig.Error; err != nil {
		fatalWithSync(logger, "invalid vault environment", observability.Error(err))
		return nil
	}

	api, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		fatalWithSync(logger, "failed to create vault client", observability.Error(err))
		return nil
	}

	store, err := vault.NewAPIStore(api, logger)
	if err != nil {
		fatalWithSync(logger, "failed to create store client", observability.Error(err))
		return nil
	}

	manager, err := vault.NewManager(cfg, store, logger)
	if err != nil {
		fatalWithSync(logger, "failed to create token manager", observability.Error(err))
		return nil
	}
	return manager
}

// fatalWithSync flushes the logger before exiting.
func fatalWithSync(logger observability.Logger, msg string, fields ...observability.Field) {
	logger.Error(msg, fields...)
	_ = logger.Sync()
	os.Exit(1)
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
