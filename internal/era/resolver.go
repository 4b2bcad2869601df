package era

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/wingman"
)

// AllTimeID is the era id the site uses for records without a patch filter
const AllTimeID = "all"

// Kind classifies an event's era
type Kind int

const (
	// Ignore marks a record for a superseded patch
	Ignore Kind = iota
	AllTime
	Current
)

// Label is the text shown in the notification's Era field
func (k Kind) Label() string {
	switch k {
	case AllTime:
		return "All Time"
	case Current:
		return "Current Patch"
	default:
		return "Old Patch"
	}
}

// PatchSource fetches the patch list, most recent first
type PatchSource interface {
	Patches(ctx context.Context) ([]wingman.Patch, error)
}

// Resolver caches the patch list and classifies event eras against it
type Resolver struct {
	src PatchSource
	now func() time.Time

	mu          sync.RWMutex
	patches     []wingman.Patch
	refreshedAt time.Time

	group singleflight.Group
}

// Option configures a Resolver
type Option func(*Resolver)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithPatches seeds the cache without calling the source
func WithPatches(patches []wingman.Patch) Option {
	return func(r *Resolver) { r.patches = slices.Clone(patches) }
}

// NewResolver creates a resolver. Call Refresh before use unless seeded.
func NewResolver(src PatchSource, opts ...Option) *Resolver {
	r := &Resolver{src: src, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh re-fetches the patch list. Concurrent callers share one request.
func (r *Resolver) Refresh(ctx context.Context) error {
	_, err, _ := r.group.Do("patches", func() (interface{}, error) {
		patches, err := r.src.Patches(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh patches: %w", err)
		}
		if len(patches) == 0 {
			return nil, fmt.Errorf("failed to refresh patches: empty list")
		}
		r.mu.Lock()
		r.patches = patches
		r.refreshedAt = r.now()
		r.mu.Unlock()
		slog.Info("Patch list refreshed", "current", patches[0].ID, "count", len(patches))
		return nil, nil
	})
	return err
}

// Resolve classifies eraID. An id missing from the cache is taken as evidence
// of a new patch: the cache is refreshed and the event treated as current.
func (r *Resolver) Resolve(ctx context.Context, eraID string) Kind {
	if eraID == AllTimeID {
		return AllTime
	}

	r.mu.RLock()
	known := slices.ContainsFunc(r.patches, func(p wingman.Patch) bool { return p.ID == eraID })
	current := len(r.patches) > 0 && r.patches[0].ID == eraID
	r.mu.RUnlock()

	if !known {
		if err := r.Refresh(ctx); err != nil {
			slog.Warn("Unknown era and refresh failed, assuming current", "era", eraID, "error", err)
		}
		return Current
	}
	if current {
		return Current
	}
	slog.Debug("Record for old patch, ignoring", "era", eraID)
	return Ignore
}

// Current returns the most recent patch, or a zero Patch if none is cached
func (r *Resolver) Current() wingman.Patch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.patches) == 0 {
		return wingman.Patch{}
	}
	return r.patches[0]
}

// CurrentStart returns when the most recent patch went live
func (r *Resolver) CurrentStart() time.Time {
	start, err := PatchStart(r.Current())
	if err != nil {
		return time.Time{}
	}
	return start
}

// IDs returns the cached patch ids, most recent first
func (r *Resolver) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.patches))
	for i, p := range r.patches {
		ids[i] = p.ID
	}
	return ids
}

// RefreshedAt returns when the cache was last refreshed from the source
func (r *Resolver) RefreshedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refreshedAt
}

// PatchStart returns the go-live time of a patch: its "from" date at 12:30 UTC
func PatchStart(p wingman.Patch) (time.Time, error) {
	day, err := time.Parse(time.DateOnly, p.From)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid patch start %q: %w", p.From, err)
	}
	return day.Add(12*time.Hour + 30*time.Minute), nil
}
