package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bsundman/nodle/internal/app"
	"github.com/bsundman/nodle/internal/demo"
	"github.com/bsundman/nodle/internal/instance"
	"github.com/bsundman/nodle/internal/intern"
	"github.com/bsundman/nodle/internal/palette"
	"github.com/bsundman/nodle/internal/rendercache"
)

// BenchResult summarizes a headless run.
type BenchResult struct {
	Frames    int
	Elapsed   time.Duration
	Polled    int
	Refreshed int
	Cache     rendercache.Stats
	Interner  intern.Stats
	Instances instance.Stats
}

// Bench drives the frame loop without a window: the workload churns, the
// cache and throttle run as usual, and the renderer skips every frame for
// want of a backend.
func Bench(ctx context.Context, opts Options, frames int) (BenchResult, error) {
	w := demo.Generate(opts.Features, opts.Seed)
	a := app.NewApp(opts.Config, w.Graph, w.Store, app.NewView(1280, 960), palette.Default(), nil)
	defer a.Close()

	res := BenchResult{}
	start := time.Now()
	for res.Frames < frames {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		w.Step()
		r := a.Tick(time.Since(start))
		res.Frames++
		res.Polled += r.Polled
		res.Refreshed += r.Refreshed
	}
	res.Elapsed = time.Since(start)
	res.Cache = a.Cache.Stats()
	res.Interner = a.Interner.Stats()
	res.Instances = a.Stream.Stats()
	return res, nil
}

func (c *CLI) newBenchCmd() *cobra.Command {
	var frames int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run frames headless and print cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := c.options(cmd)
			if err != nil {
				return err
			}
			res, err := Bench(cmd.Context(), opts, frames)
			if err != nil {
				return err
			}
			printBench(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().IntVarP(&frames, "frames", "n", 600, "Number of frames to run")
	return cmd
}

func printBench(w io.Writer, res BenchResult) {
	perFrame := 0.0
	if res.Frames > 0 {
		perFrame = float64(res.Elapsed.Microseconds()) / float64(res.Frames)
	}
	fmt.Fprintf(w, "frames:     %d (%.1fµs/frame)\n", res.Frames, perFrame)
	fmt.Fprintf(w, "polls:      %d polled, %d refreshed\n", res.Polled, res.Refreshed)
	fmt.Fprintf(w, "cache:      %d entries, %.1f%% hit rate, %d cold starts, %d partial updates, %d items refreshed\n",
		res.Cache.Entries, 100*res.Cache.HitRate(), res.Cache.ColdStarts, res.Cache.PartialUpdates, res.Cache.ItemsRefreshed)
	fmt.Fprintf(w, "interner:   %d strings, %d hits, %d misses, %d evictions\n",
		res.Interner.Len, res.Interner.Hits, res.Interner.Misses, res.Interner.Evictions)
	fmt.Fprintf(w, "instances:  %d nodes, %d ports, %d buttons, %d flags (%d rebuilds, %d skipped)\n",
		res.Instances.Nodes, res.Instances.Ports, res.Instances.Buttons, res.Instances.Flags,
		res.Instances.Rebuilds, res.Instances.Skipped)
}
