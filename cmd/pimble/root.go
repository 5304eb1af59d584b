package main

import (
	"github.com/joeleaver/pimble/infrastructure/config"
	"github.com/joeleaver/pimble/infrastructure/di"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "pimble",
	Short:         "Local-first personal knowledge base",
	Long:          "pimble manages trees of documents in plain-file stores and serves them over HTTP.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// newContainer loads configuration and wires the application. Every
// subcommand goes through here so flags and env behave identically.
func newContainer(logLevel string) (*di.Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return di.InitializeContainer(cfg)
}
