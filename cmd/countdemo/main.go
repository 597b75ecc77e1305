// Command countdemo counts slowly to a number, drawing a progress bar while it goes.
//
// It's a small tour of the task package: the count runs as a Task on a Pool,
// reports progress through its Delegate, is watched by WhileRunning,
// announces its result through OnResult, and is cancelled on interrupt.
//
// Usage:
//
//	countdemo [-config countdemo.toml] [-count N]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/warpfork/go-task"
	"github.com/warpfork/go-task/internal/config"
	"github.com/warpfork/go-task/internal/progressbar"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "countdemo:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a TOML config file")
	count := flag.Int("count", 0, "how far to count (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *count > 0 {
		cfg.Count = *count
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	counter := task.Of(countTo(cfg.Count, cfg.Step),
		task.WithName("count"),
		task.WithLogger(logger),
	)

	bar := progressbar.New(cfg.Count,
		progressbar.WithWidth(cfg.Width),
		progressbar.WithPlain(cfg.Plain),
	)
	var drawMu sync.Mutex
	draw := func(n int) {
		drawMu.Lock()
		defer drawMu.Unlock()
		fmt.Fprint(os.Stdout, "\r"+bar.Render(n))
	}
	if _, err := counter.WhileRunning(draw, cfg.Poll); err != nil {
		return err
	}
	counter.OnResult(func(s string) {
		drawMu.Lock()
		defer drawMu.Unlock()
		fmt.Fprintln(os.Stdout)
		if s == "" {
			fmt.Fprintln(os.Stdout, "cancelled.")
			return
		}
		fmt.Fprintln(os.Stdout, s)
	})

	pool := task.NewPool(cfg.Workers)
	// The body's context isn't tied to ctx: interrupts go through Cancel,
	// so that the task ends up cancelled rather than failed.
	future := counter.RunAsync(context.Background(), pool)
	go func() {
		select {
		case <-ctx.Done():
			counter.Cancel()
		case <-counter.Done():
		}
	}()

	_, err = future.Await(context.Background())
	pool.Wait()
	if err != nil {
		return err
	}
	if future.IsCancelled() {
		logger.Info("count was cancelled", "reached", counter.Progress())
	}
	return nil
}

// countTo returns a body which counts from 0 to n, pausing step between counts,
// and results in "done".
func countTo(n int, step time.Duration) task.Body[int, string] {
	return func(ctx task.Context, d *task.Delegate[int]) (string, error) {
		timer := time.NewTimer(step)
		defer timer.Stop()
		for i := 0; i <= n; i++ {
			if err := d.SetProgress(i); err != nil {
				return "", err
			}
			if i == n {
				break
			}
			timer.Reset(step)
			select {
			case <-timer.C:
			case <-ctx.Done():
				return "", context.Cause(ctx)
			}
		}
		return "done", nil
	}
}
