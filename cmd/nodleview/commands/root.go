// Package commands implements the command line interface of the node graph
// viewer.
package commands

import (
	"context"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/bsundman/nodle/internal/config"
	"github.com/bsundman/nodle/internal/demo"
)

// SeedEnv seeds the generated workload when --seed is not given.
const SeedEnv = "NODLE_SEED"

// ErrInvalidFlag is returned for workload flags out of range.
var ErrInvalidFlag = zerr.New("invalid flag")

// Options is everything a run needs, resolved from flags, the environment
// and the config file.
type Options struct {
	Config   config.Config
	Features demo.Features
	Seed     int64
}

// Viewer opens the interactive window. It blocks until the window closes
// or ctx is done.
type Viewer interface {
	Run(ctx context.Context, opts Options) error
}

// ViewerFunc adapts a function to Viewer.
type ViewerFunc func(ctx context.Context, opts Options) error

func (f ViewerFunc) Run(ctx context.Context, opts Options) error { return f(ctx, opts) }

// CLI represents the command line interface.
type CLI struct {
	viewer  Viewer
	rootCmd *cobra.Command

	configPath   string
	nodes        int
	meshes       int
	churn        float64
	seed         int64
	differential bool
}

// New creates the CLI. The root command runs viewer.
func New(viewer Viewer) *CLI {
	c := &CLI{viewer: viewer}
	def := demo.DefaultFeatures()

	rootCmd := &cobra.Command{
		Use:           "nodleview",
		Short:         "Node graph viewer with incremental scene summaries",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := c.options(cmd)
			if err != nil {
				return err
			}
			return c.viewer.Run(cmd.Context(), opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "Path to a YAML config file")
	flags.IntVar(&c.nodes, "nodes", def.Nodes, "Number of generated nodes")
	flags.IntVar(&c.meshes, "meshes", def.MeshesPerScene, "Meshes in each generated scene")
	flags.Float64Var(&c.churn, "churn", def.Churn, "Per-frame probability that a source republishes")
	flags.Int64Var(&c.seed, "seed", 0, "Workload seed (default $"+SeedEnv+", else the current time)")
	flags.BoolVar(&c.differential, "differential", false, "Skip instance rebuilds when nothing changed")

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c.rootCmd = rootCmd
	rootCmd.AddCommand(c.newBenchCmd())
	rootCmd.AddCommand(c.newConfigCmd())
	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// options resolves flags over the config file over the defaults.
func (c *CLI) options(cmd *cobra.Command) (Options, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return Options{}, err
		}
	}
	if cmd.Flags().Changed("differential") {
		cfg.Stream.Differential = c.differential
	}

	f := demo.DefaultFeatures()
	f.Nodes = c.nodes
	f.MeshesPerScene = c.meshes
	f.Churn = c.churn
	switch {
	case f.Nodes < 2:
		return Options{}, zerr.With(zerr.Wrap(ErrInvalidFlag, "--nodes must be at least 2"), "value", f.Nodes)
	case f.MeshesPerScene < 0:
		return Options{}, zerr.With(zerr.Wrap(ErrInvalidFlag, "--meshes must not be negative"), "value", f.MeshesPerScene)
	case f.Churn < 0 || f.Churn > 1:
		return Options{}, zerr.With(zerr.Wrap(ErrInvalidFlag, "--churn must be within [0, 1]"), "value", f.Churn)
	}

	opts := Options{Config: cfg, Features: f, Seed: c.seed}
	if !cmd.Flags().Changed("seed") {
		s, err := seed()
		if err != nil {
			return Options{}, err
		}
		opts.Seed = s
	}
	return opts, nil
}

func seed() (int64, error) {
	seedStr := os.Getenv(SeedEnv)
	if seedStr == "" {
		return time.Now().Unix(), nil
	}
	s, err := strconv.ParseInt(seedStr, 10, 64)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "invalid "+SeedEnv+" value"), "value", seedStr)
	}
	return s, nil
}
