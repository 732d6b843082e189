package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/figura/internal/app"
	"github.com/matzehuels/figura/pkg/buildinfo"
	"github.com/matzehuels/figura/pkg/config"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "figura"

	// envConfig names the environment variable holding the config path.
	envConfig = "FIGURA_CONFIG"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Out    io.Writer

	configPath string
	config     config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
		config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Figura turns short text into laid-out diagrams",
		Long: `Figura parses outlines, arrow chains, SQL tables and mind maps into
positioned diagrams, renders them as SVG or PNG and exports print-ready files.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", os.Getenv(envConfig), "config file (env "+envConfig+")")

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.toolsCommand())
	root.AddCommand(c.draftsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads --config, or keeps the defaults when none is given.
func (c *CLI) loadConfig() error {
	if c.configPath == "" {
		return nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.config = cfg
	c.Logger.Debug("loaded config", "path", c.configPath)
	return nil
}

// =============================================================================
// App Factory
// =============================================================================

// newApp wires the collaborators for one command. Callers must Close it.
func (c *CLI) newApp(ctx context.Context, opts app.Options) (*app.App, error) {
	return app.New(ctx, c.config, c.Logger, opts)
}
