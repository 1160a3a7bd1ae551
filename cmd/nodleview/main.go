package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"go.trai.ch/zerr"

	"github.com/bsundman/nodle/cmd/nodleview/commands"
	"github.com/bsundman/nodle/internal/app"
	"github.com/bsundman/nodle/internal/demo"
	"github.com/bsundman/nodle/internal/gpu"
	"github.com/bsundman/nodle/internal/gpu/glrender"
	"github.com/bsundman/nodle/internal/intern"
	"github.com/bsundman/nodle/internal/palette"
	"github.com/bsundman/nodle/internal/rendercache"
)

const logFlags = log.Ltime | log.Lshortfile

var runtimeLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	// OpenGL contexts are tied to specific OS threads - let's pin to just one.
	runtime.LockOSThread()
	log.SetFlags(logFlags)

	if os.Getenv("NODLE_DEBUG_RUNTIME") == "1" {
		runtimeLogger = log.New(os.Stdout, "[runtime] ", log.Ltime|log.Lmsgprefix)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := commands.New(commands.ViewerFunc(run))
	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		stop()
		os.Exit(1)
	}
}

func makeTitle(fps, avgFrameTime float64, tracked int, r app.Report, cache rendercache.Stats, gs gpu.Stats, in intern.Stats) string {
	return fmt.Sprintf("Nodle (%.1f FPS, %.2fms/frame, %d nodes, %d tracked, %.1f%% cache hits, %d strings, %.2fµs/draw, %.2fµs/prepare)",
		fps,
		avgFrameTime,
		r.Instances.Nodes,
		tracked,
		100*cache.HitRate(),
		in.Len,
		gs.LastDrawUs,
		gs.LastPrepareUs,
	)
}

// run opens the window and drives the frame loop until it closes.
func run(ctx context.Context, opts commands.Options) error {
	if err := glfw.Init(); err != nil {
		return zerr.Wrap(err, "failed to initialize GLFW")
	}
	defer glfw.Terminate()

	// Configure GLFW window hints - use OpenGL 4.1.
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)

	window, err := glfw.CreateWindow(
		1280, // width
		960,  // height
		"Nodle",
		nil, nil,
	)
	if err != nil {
		return zerr.Wrap(err, "failed to create window")
	}
	defer window.Destroy()
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		return zerr.Wrap(err, "failed to initialize OpenGL")
	}
	runtimeLogger.Printf("OpenGL %s, seed %d", gl.GoStr(gl.GetString(gl.VERSION)), opts.Seed)

	workload := demo.Generate(opts.Features, opts.Seed)
	theme := palette.Tinted(palette.Default(), rand.New(rand.NewSource(opts.Seed)))

	cw, ch := window.GetFramebufferSize()
	application := app.NewApp(
		opts.Config,
		workload.Graph,
		workload.Store,
		app.NewView(cw, ch),
		theme,
		glrender.Factory(opts.Config.Renderer),
	)
	defer application.Close()

	// Start on the first tracked viewport.
	if id, ok := application.Tracker.Cycle(true); ok {
		if n, ok := application.Graph.Node(id); ok {
			application.View.ResetTo(n.Bounds.Center())
		}
	}

	eventHandlers := NewEventHandlers(application, window, workload)

	start := time.Now()
	frameCount, frameTimeSum := 0, 0.0
	lastFPSUpdate := time.Now()

	// Main loop.
	for !window.ShouldClose() {
		if ctx.Err() != nil {
			return nil
		}
		frameStart := time.Now()

		eventHandlers.handleContinuousPanning()
		if src, ok := workload.Step(); ok {
			runtimeLogger.Printf("source %d republished", src)
		}
		report := application.Tick(time.Since(start))

		w, h := window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(w), int32(h))
		gl.ClearColor(0.16, 0.16, 0.16, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT)

		application.Renderer.Paint()
		window.SwapBuffers()
		glfw.PollEvents()

		frameTime := time.Since(frameStart).Seconds() * 1000.0 // ms
		frameTimeSum += frameTime

		frameCount++
		now := time.Now()
		if now.Sub(lastFPSUpdate) >= time.Second {
			fps := float64(frameCount) / now.Sub(lastFPSUpdate).Seconds()
			avgFrameTime := frameTimeSum / float64(frameCount)
			frameCount, frameTimeSum = 0, 0.0
			lastFPSUpdate = now

			cacheStats := application.Cache.Stats()
			gpuStats := application.Renderer.Stats()
			internStats := application.Interner.Stats()
			window.SetTitle(makeTitle(fps, avgFrameTime, application.Tracker.Len(), report, cacheStats, gpuStats, internStats))

			runtimeLogger.Println("=== Performance statistics ===")
			runtimeLogger.Printf("Frame rate:     %.1f FPS (%.2f ms/frame)", fps, avgFrameTime)
			runtimeLogger.Printf("Instances:      %d nodes, %d ports, %d buttons, %d flags", report.Instances.Nodes, report.Instances.Ports, report.Instances.Buttons, report.Instances.Flags)
			runtimeLogger.Printf("Render cache:   %d entries, %d hits, %d misses, %d cold, %d partial", cacheStats.Entries, cacheStats.Hits, cacheStats.Misses, cacheStats.ColdStarts, cacheStats.PartialUpdates)
			runtimeLogger.Printf("Interner:       %d strings, %d evictions", internStats.Len, internStats.Evictions)
			runtimeLogger.Printf("Renderer:       %d prepared, %d painted, %d skipped, %d contended, %d buffer grows", gpuStats.Prepared, gpuStats.Painted, gpuStats.Skipped, gpuStats.Contended, gpuStats.BufferGrows)
			runtimeLogger.Printf("Render time:    %.2f µs (last draw), %.2f µs (last prepare)", gpuStats.LastDrawUs, gpuStats.LastPrepareUs)
			runtimeLogger.Println("==============================")
		}
	}
	return nil
}
