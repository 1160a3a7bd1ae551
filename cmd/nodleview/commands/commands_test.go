package commands_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsundman/nodle/cmd/nodleview/commands"
	"github.com/bsundman/nodle/internal/config"
	"github.com/bsundman/nodle/internal/demo"
)

// capture returns a viewer that records the options it was run with.
func capture(got *commands.Options, calls *int) commands.Viewer {
	return commands.ViewerFunc(func(_ context.Context, opts commands.Options) error {
		*got = opts
		*calls++
		return nil
	})
}

func run(t *testing.T, v commands.Viewer, args ...string) (string, error) {
	t.Helper()
	cli := commands.New(v)
	var out bytes.Buffer
	cli.SetOutput(&out, &out)
	cli.SetArgs(args)
	err := cli.Execute(context.Background())
	return out.String(), err
}

func TestRootRunsViewer(t *testing.T) {
	var opts commands.Options
	calls := 0
	_, err := run(t, capture(&opts, &calls), "--nodes", "12", "--meshes", "7", "--seed", "7", "--differential")
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	assert.Equal(t, 12, opts.Features.Nodes)
	assert.Equal(t, 7, opts.Features.MeshesPerScene)
	assert.Equal(t, demo.DefaultFeatures().Lights, opts.Features.Lights)
	assert.Equal(t, int64(7), opts.Seed)
	assert.True(t, opts.Config.Stream.Differential)
	assert.Equal(t, config.Default().Throttle, opts.Config.Throttle)
}

func TestSeedFromEnv(t *testing.T) {
	t.Setenv(commands.SeedEnv, "42")
	var opts commands.Options
	calls := 0
	_, err := run(t, capture(&opts, &calls))
	require.NoError(t, err)
	assert.Equal(t, int64(42), opts.Seed)

	t.Setenv(commands.SeedEnv, "forty-two")
	_, err = run(t, capture(&opts, &calls))
	require.Error(t, err)
	assert.Contains(t, err.Error(), commands.SeedEnv)
	assert.Equal(t, 1, calls)

	// An explicit flag wins over the environment.
	_, err = run(t, capture(&opts, &calls), "--seed", "3")
	require.NoError(t, err)
	assert.Equal(t, int64(3), opts.Seed)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stream:\n  differential: true\nthrottle:\n  base_interval: 12\n"), 0o644))

	var opts commands.Options
	calls := 0
	_, err := run(t, capture(&opts, &calls), "--config", path, "--seed", "1")
	require.NoError(t, err)
	assert.True(t, opts.Config.Stream.Differential)
	assert.Equal(t, uint64(12), opts.Config.Throttle.BaseInterval)

	_, err = run(t, capture(&opts, &calls), "--config", path, "--seed", "1", "--differential=false")
	require.NoError(t, err)
	assert.False(t, opts.Config.Stream.Differential)

	_, err = run(t, capture(&opts, &calls), "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestInvalidFlags(t *testing.T) {
	for _, args := range [][]string{
		{"--nodes", "1"},
		{"--meshes", "-1"},
		{"--churn", "1.5"},
	} {
		var opts commands.Options
		calls := 0
		_, err := run(t, capture(&opts, &calls), append(args, "--seed", "1")...)
		assert.True(t, errors.Is(err, commands.ErrInvalidFlag), "%v: %v", args, err)
		assert.Zero(t, calls)
	}
}

func TestViewerError(t *testing.T) {
	boom := errors.New("no display")
	_, err := run(t, commands.ViewerFunc(func(context.Context, commands.Options) error { return boom }), "--seed", "1")
	assert.ErrorIs(t, err, boom)
}

func TestBenchCmd(t *testing.T) {
	var opts commands.Options
	calls := 0
	out, err := run(t, capture(&opts, &calls), "bench", "--frames", "5", "--nodes", "8", "--meshes", "3", "--seed", "1")
	require.NoError(t, err)
	assert.Zero(t, calls)
	assert.Contains(t, out, "frames:     5")
	assert.Contains(t, out, "2 cold starts")
	assert.Contains(t, out, "8 nodes")
}

func TestBench(t *testing.T) {
	f := demo.DefaultFeatures()
	f.Nodes, f.MeshesPerScene, f.Churn = 8, 3, 0
	res, err := commands.Bench(context.Background(), commands.Options{Config: config.Default(), Features: f, Seed: 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Frames)
	assert.Equal(t, 2, res.Polled)
	assert.Equal(t, uint64(2), res.Cache.ColdStarts)
	assert.Equal(t, 2, res.Cache.Entries)
	assert.Equal(t, 8, res.Instances.Nodes)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = commands.Bench(ctx, commands.Options{Config: config.Default(), Features: f, Seed: 1}, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigCmd(t *testing.T) {
	var opts commands.Options
	calls := 0
	out, err := run(t, capture(&opts, &calls), "config", "--differential", "--seed", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "throttle:")
	assert.Contains(t, out, "differential: true")

	parsed, err := config.Parse([]byte(out))
	require.NoError(t, err)
	assert.True(t, parsed.Stream.Differential)
}
