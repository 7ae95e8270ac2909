package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/datashelf/internal/config"
	"github.com/vk/datashelf/internal/ctxlog"
	"github.com/vk/datashelf/internal/formatter"
	"github.com/vk/datashelf/internal/shelf"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *formatter.Registry
	model    *config.Model
	shelf    *shelf.Shelf
	tag      string
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and formatter
// registry, with every configured repository attached.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...formatter.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfgModel, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	reg := formatter.New()
	if len(modules) == 0 {
		modules = coreFormats
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All formatter modules registered.", "count", len(modules))

	sh, err := shelf.Open(ctx, reg, cfgModel)
	if err != nil {
		panic(fmt.Errorf("failed to open shelf: %w", err))
	}

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		model:    cfgModel,
		shelf:    sh,
		tag:      appConfig.Tag,
	}
}

// Registry returns the application's formatter registry. This is primarily
// for testing.
func (a *App) Registry() *formatter.Registry {
	return a.registry
}

// Shelf returns the application's shelf. This is primarily for testing.
func (a *App) Shelf() *shelf.Shelf {
	return a.shelf
}
