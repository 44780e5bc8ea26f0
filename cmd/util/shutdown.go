package util

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
)

// GracefulShutdown cancels the running tasks once a termination signal captured, and
// waits for them to complete.
func GracefulShutdown(wg *sync.WaitGroup, cancel context.CancelFunc) {
	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGTERM, syscall.SIGINT)

	<-termChan
	logrus.Info("SIGTERM/SIGINT received, shutdown process initiated")

	cancel()

	logrus.Info("Waiting for shutdown...")
	wg.Wait()

	logrus.Info("Shutdown gracefully")
}

// StartAndGracefulShutdown runs the task in a goroutine until termination signal captured.
func StartAndGracefulShutdown(ctx context.Context, run func(ctx context.Context, wg *sync.WaitGroup)) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	if run != nil {
		wg.Add(1)
		go run(ctx, &wg)
	}

	GracefulShutdown(&wg, cancel)
}
