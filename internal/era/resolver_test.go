package era

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/wingman"
)

type fakeSource struct {
	patches []wingman.Patch
	err     error
	calls   atomic.Int32
}

func (f *fakeSource) Patches(context.Context) ([]wingman.Patch, error) {
	f.calls.Add(1)
	return f.patches, f.err
}

var cached = []wingman.Patch{{ID: "24-06", From: "2024-06-25"}, {ID: "24-03", From: "2024-03-19"}}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{patches: append([]wingman.Patch{{ID: "24-08", From: "2024-08-20"}}, cached...)}
	r := NewResolver(src, WithPatches(cached))

	assert.Equal(t, AllTime, r.Resolve(ctx, "all"))
	assert.Equal(t, Current, r.Resolve(ctx, "24-06"))
	assert.Equal(t, Ignore, r.Resolve(ctx, "24-03"))
	assert.Zero(t, src.calls.Load(), "known ids must not refresh")

	assert.Equal(t, Current, r.Resolve(ctx, "24-08"))
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, "24-08", r.Current().ID)
	assert.Equal(t, Ignore, r.Resolve(ctx, "24-06"), "previous current is now superseded")
}

func TestResolveUnknownWhenRefreshFails(t *testing.T) {
	src := &fakeSource{err: errors.New("down")}
	r := NewResolver(src, WithPatches(cached))

	assert.Equal(t, Current, r.Resolve(context.Background(), "99-99"))
	assert.Equal(t, "24-06", r.Current().ID, "cache kept on failed refresh")
}

func TestRefresh(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{patches: cached}
	r := NewResolver(src, WithClock(func() time.Time { return now }))

	assert.Empty(t, r.IDs())
	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, []string{"24-06", "24-03"}, r.IDs())
	assert.Equal(t, now, r.RefreshedAt())
	assert.Equal(t, time.Date(2024, 6, 25, 12, 30, 0, 0, time.UTC), r.CurrentStart())
}

func TestPatchStartInvalid(t *testing.T) {
	_, err := PatchStart(wingman.Patch{ID: "x", From: "soon"})
	assert.Error(t, err)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "All Time", AllTime.Label())
	assert.Equal(t, "Current Patch", Current.Label())
}
