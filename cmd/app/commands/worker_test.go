package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	stopped atomic.Bool
	err     error
}

func (f *fakeScheduler) Run(ctx context.Context, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	f.stopped.Store(true)
	return nil
}

type fakeServer struct {
	shutdown chan struct{}
	startErr error
	down     atomic.Bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{shutdown: make(chan struct{})}
}

func (f *fakeServer) Start(_ context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.shutdown
	return nil
}

func (f *fakeServer) Shutdown(_ context.Context) error {
	if f.down.CompareAndSwap(false, true) {
		close(f.shutdown)
	}
	return nil
}

func TestRunWorker(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		scheduler := &fakeScheduler{}
		server := newFakeServer()

		done := make(chan error, 1)
		go func() {
			done <- RunWorker(ctx, scheduler, server, logger, time.Second)
		}()

		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not stop")
		}
		assert.True(t, scheduler.stopped.Load())
		assert.True(t, server.down.Load())
	})

	t.Run("server failure stops the scheduler", func(t *testing.T) {
		scheduler := &fakeScheduler{}
		server := newFakeServer()
		server.startErr = errors.New("address already in use")

		err := RunWorker(context.Background(), scheduler, server, logger, time.Second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "address already in use")
		assert.True(t, scheduler.stopped.Load())
	})

	t.Run("scheduler failure stops the server", func(t *testing.T) {
		scheduler := &fakeScheduler{err: errors.New("scheduler shutdown: deadline exceeded")}
		server := newFakeServer()

		err := RunWorker(context.Background(), scheduler, server, logger, time.Second)
		require.Error(t, err)
		assert.True(t, server.down.Load())
	})
}
