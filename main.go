package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gamzabox/humble-doc-cli/internal/app"
	"github.com/gamzabox/humble-doc-cli/internal/assist"
	"github.com/gamzabox/humble-doc-cli/internal/config"
	"github.com/gamzabox/humble-doc-cli/internal/llm"
	"github.com/gamzabox/humble-doc-cli/internal/logging"
	"github.com/gamzabox/humble-doc-cli/internal/source"
)

var version = "dev"

func main() {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to determine home directory: %v\n", err)
		os.Exit(1)
	}

	store := config.NewFileStore(home)
	cfg, err := config.LoadOrDefault(store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, closer, err := logging.New(logging.Options{
		Dir:   logging.DefaultDir(home, config.DirName),
		Level: cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	factory := llm.NewFactory(nil)
	if sec := cfg.Generation.TimeoutSeconds; sec > 0 {
		factory = factory.Timeout(time.Duration(sec) * time.Second)
	}

	root := app.NewRootCommand(app.Environment{
		Home:    home,
		Store:   store,
		Factory: factory,
		Loader:  source.NewLoader(nil, logger),
		Logger:  logger,
		Version: version,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		logger.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %s\n", assist.Describe(err))
		closer.Close()
		os.Exit(1)
	}
}
