package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docmacro/internal/config"
	"github.com/dgallion1/docmacro/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

// app holds state shared by all subcommands once flags are parsed.
type app struct {
	cfg config.Config
	log *slog.Logger

	// flag values, applied over the environment in setup
	logLevel        string
	logFormat       string
	baseDir         string
	cacheDir        string
	bibliography    string
	maxIncludeDepth int
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "docmacro",
		Short: "Two-stage {{name:argument}} document macro expander",
		Long: "docmacro expands commands embedded in a document in two passes.\n" +
			"The first pass splices in includes and rendered artifacts; the\n" +
			"outline of the result is then extracted so the second pass can\n" +
			"emit a table of contents, bibliography and metadata.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.Version = version

	f := root.PersistentFlags()
	f.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (env DOCMACRO_LOG_LEVEL)")
	f.StringVar(&a.logFormat, "log-format", "", "Log format: text or json (env DOCMACRO_LOG_FORMAT)")
	f.StringVar(&a.baseDir, "base-dir", "", "Directory relative command arguments resolve against (env DOCMACRO_BASE_DIR)")
	f.StringVar(&a.cacheDir, "cache-dir", "", "Rendered artifact cache directory (env DOCMACRO_CACHE_DIR)")
	f.StringVar(&a.bibliography, "bibliography", "", "YAML citation sources loaded before each run (env DOCMACRO_BIBLIOGRAPHY)")
	f.IntVar(&a.maxIncludeDepth, "max-include-depth", 0, "Include nesting limit (env DOCMACRO_MAX_INCLUDE_DEPTH)")

	root.AddCommand(newRenderCmd(a))
	root.AddCommand(newOutlineCmd(a))
	root.AddCommand(newServeCmd(a))
	return root
}

// setup loads the environment configuration, applies explicit flags over it
// and initializes logging to stderr.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Load()
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if flags.Changed("base-dir") {
		cfg.BaseDir = a.baseDir
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir = a.cacheDir
	}
	if flags.Changed("bibliography") {
		cfg.Bibliography = a.bibliography
	}
	if flags.Changed("max-include-depth") && a.maxIncludeDepth > 0 {
		cfg.MaxIncludeDepth = a.maxIncludeDepth
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.Init(level, cfg.LogFormat, cmd.ErrOrStderr())

	a.cfg = cfg
	a.log = logging.New("docmacro")
	return nil
}
