package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/shared"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/storage"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/validation"
)

var version = "0.3.0-dev"

// app carries what every subcommand needs once flags and config are resolved.
type app struct {
	configPath string
	logFormat  string
	logLevel   string

	cfg shared.Config
	log *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "creaturetime:", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "creaturetime",
		Short: "Validate and repair avatar scene documents",
		Long: `creaturetime checks a scene document against a catalog of naming rules,
lists what it found and applies the repairs the rules offer. It also carries
the shape key and vertex group clean-up tools.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to YAML config (optional)")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: json|text")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error")

	root.AddCommand(
		newRulesCmd(a),
		newCheckCmd(a),
		newRepairCmd(a),
		newWatchCmd(a),
		newShapeKeysCmd(a),
		newVertexGroupsCmd(a),
		newJournalCmd(a),
		newServeCmd(a),
		newTokenCmd(),
		newVersionCmd(),
	)
	return root
}

// setup resolves configuration. Precedence: flags > env > file > defaults.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := shared.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = shared.InitLogger(cmd.ErrOrStderr(), cfg.Logging.Format, cfg.Logging.Level)
	return nil
}

// openJournal returns nil when journaling is disabled.
func (a *app) openJournal() (*storage.DB, error) {
	if !a.cfg.Journal.Enabled || a.cfg.Journal.DSN == "" {
		return nil, nil
	}
	db, err := storage.OpenSQLite(a.cfg.Journal.DSN)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.CreateSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return db, nil
}

// openSession loads the document at path into a fresh session.
func (a *app) openSession(path string, journal validation.Journal) (*validation.Session, *scene.Document, error) {
	if path == "" {
		return nil, nil, errors.New("--scene is required")
	}
	doc, err := scene.Load(path)
	if err != nil {
		return nil, nil, err
	}
	s := validation.NewSession(a.log, journal)
	s.Load(doc)
	return s, doc, nil
}

// errFindings makes check exit non-zero without printing twice.
var errFindings = errors.New("error findings present")

func exitCode(err error) int {
	var failed *validation.RepairFailedError
	switch {
	case errors.Is(err, errFindings), errors.As(err, &failed):
		return 3
	default:
		return 1
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "creaturetime", version)
		},
	}
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
