package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/filippods/irriboard"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// start mock irrigation backend (see mock_server.go)
	go StartMockBackend(":9999")
	time.Sleep(100 * time.Millisecond)

	console, err := irriboard.New("http://localhost:9999",
		irriboard.WithLogger(logger),
		irriboard.WithRenderer(irriboard.NewLogRenderer(logger)),
		irriboard.WithNotifier(&irriboard.LogNotifier{Logger: logger}),
		irriboard.WithRelay(8080),
		irriboard.WithSnapshotCallback(func(s irriboard.Snapshot) {
			if s.ProgramRunning && s.ActiveZone != nil {
				fmt.Printf("  watering %s, %ds left\n", s.ActiveZone.Name, s.ActiveZone.RemainingSeconds)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create console", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   irriboard Demo                                      ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Mock irrigation backend on http://localhost:9999    ║")
	fmt.Println("  ║   State relay on http://localhost:8080/api/state      ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   The demo starts the \"Morning cycle\" program after   ║")
	fmt.Println("  ║   a few seconds. Watch polling accelerate to 1s.      ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// kick off a program once polling has settled
	go func() {
		select {
		case <-time.After(8 * time.Second):
		case <-ctx.Done():
			return
		}
		if err := console.StartProgram(ctx, "1"); err != nil {
			slog.Error("failed to start program", "error", err)
		}
	}()

	if err := console.Start(ctx); err != nil {
		slog.Error("console error", "error", err)
		os.Exit(1)
	}
}
