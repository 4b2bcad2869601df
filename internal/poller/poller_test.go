package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestPollRefreshesEveryTarget(t *testing.T) {
	var ok, failed atomic.Int32
	p := New("@every 1h", time.Second, map[string]Refresher{
		"bosses":  RefreshFunc(func(context.Context) error { ok.Add(1); return nil }),
		"patches": RefreshFunc(func(context.Context) error { failed.Add(1); return errors.New("upstream down") }),
	})

	p.Poll(context.Background())
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), failed.Load())
}

func TestPollStopsOnCancelledContext(t *testing.T) {
	var calls atomic.Int32
	p := New("@every 1h", time.Second, map[string]Refresher{
		"bosses": RefreshFunc(func(context.Context) error { calls.Add(1); return nil }),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Poll(ctx)
	assert.Zero(t, calls.Load())
}

func TestScheduledRefresh(t *testing.T) {
	defer goleak.VerifyNone(t)

	refreshed := make(chan struct{}, 8)
	p := New("@every 1s", time.Second, map[string]Refresher{
		"patches": RefreshFunc(func(context.Context) error {
			refreshed <- struct{}{}
			return nil
		}),
	})

	require.NoError(t, p.Start(context.Background()))
	assert.Error(t, p.Start(context.Background()))

	select {
	case <-refreshed:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled refresh never ran")
	}
	p.Stop()
	p.Stop()
}

func TestInvalidSchedule(t *testing.T) {
	p := New("every so often", time.Second, nil)
	assert.Error(t, p.Start(context.Background()))
}
