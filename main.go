package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mrlokans/librarian/internal/cli"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/entrypoint"
	"github.com/mrlokans/librarian/internal/logging"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := config.LoadEnvFile("."); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg := config.NewConfig()

	log, err := logging.New(cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		if err := entrypoint.Run(cfg, log, Version+"-"+Commit); err != nil {
			log.Error("server failed", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "import-books":
		cmd := cli.NewImportBooksCommand()
		if err := cmd.ParseFlags(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := importBooks(cfg, log, cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "-h", "--help", "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func importBooks(cfg *config.Config, log *zap.Logger, cmd *cli.ImportBooksCommand) error {
	ctx := context.Background()
	app, err := entrypoint.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(ctx); err != nil {
			log.Error("error closing application", zap.Error(err))
		}
	}()
	return cmd.Run(ctx, app.Importer)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve          Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  import-books   Import books from an Excel workbook for a user\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
