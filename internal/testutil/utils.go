package testutil

import (
	"context"
	"log"
	"os"
	"testing"
	"time"
)

func TestLogger(t *testing.T) *log.Logger {
	logger := log.New(os.Stdout, "[test] ", log.LstdFlags)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
	})
	return logger
}

// TestContext returns a context that is cancelled when the test ends or
// after five seconds, whichever comes first.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
