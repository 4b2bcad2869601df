package pb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/notify"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/storage"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/wingman"
)

var (
	ErrNoAPIKey        = fmt.Errorf("%w: no api key registered", record.ErrNotConfigured)
	ErrNoTrackedBosses = fmt.Errorf("%w: no tracked bosses", record.ErrNotConfigured)
)

// logZone is the fixed offset log links are stamped in
var logZone = time.FixedZone("UTC-5", -5*60*60)

const linkLayout = "20060102-150405"

// UserStore is the subset of the repository the checker needs
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*storage.User, error)
	SetLastChecked(ctx context.Context, userID string, at time.Time) error
}

// StatsSource fetches a player's stats snapshot
type StatsSource interface {
	PlayerStats(ctx context.Context, apiKey string) (*wingman.PlayerStats, error)
}

// Eras exposes the current patch
type Eras interface {
	Current() wingman.Patch
	CurrentStart() time.Time
}

// Catalog resolves boss names and specialization names
type Catalog interface {
	DisplayName(id string, legendary bool, fallback string) string
	IsProfession(name string) bool
}

// Result is the outcome of one check. Primed is set when the check only
// stamped last_checked without fetching stats.
type Result struct {
	Primed   bool
	Messages []string
}

// Checker finds logs that beat a user's previous bests since their last check
type Checker struct {
	users   UserStore
	stats   StatsSource
	eras    Eras
	catalog Catalog
	baseURL string
	now     func() time.Time
}

// NewChecker creates a checker. baseURL is the stats site used for log links.
func NewChecker(users UserStore, stats StatsSource, eras Eras, catalog Catalog, baseURL string) *Checker {
	return &Checker{
		users:   users,
		stats:   stats,
		eras:    eras,
		catalog: catalog,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// Check compares the user's current-era bests against their last check
func (c *Checker) Check(ctx context.Context, userID string) (*Result, error) {
	user, err := c.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoAPIKey
		}
		return nil, err
	}
	if user.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if len(user.TrackedBossIDs) == 0 {
		return nil, ErrNoTrackedBosses
	}

	now := c.now().UTC()
	if user.LastChecked == nil || user.LastChecked.Before(c.eras.CurrentStart()) {
		if err := c.users.SetLastChecked(ctx, userID, now); err != nil {
			return nil, err
		}
		slog.Debug("Primed PB check", "user", userID)
		return &Result{Primed: true}, nil
	}
	since := *user.LastChecked

	stats, err := c.stats.PlayerStats(ctx, user.APIKey)
	if err != nil {
		return nil, err
	}

	eraID := c.eras.Current().ID
	var messages []string
	messages = append(messages, c.newDPSLogs(user, stats.TopPerformances[eraID], since)...)
	messages = append(messages, c.newTimeLogs(user, stats.TopBossTimes[eraID], since)...)

	if err := c.users.SetLastChecked(ctx, userID, now); err != nil {
		return nil, err
	}
	return &Result{Messages: messages}, nil
}

func (c *Checker) newDPSLogs(user *storage.User, perfs map[string]map[string]wingman.TopPerformance, since time.Time) []string {
	var out []string
	for _, bossID := range sortedKeys(perfs) {
		if !user.Tracks(bossID) {
			continue
		}
		specs := perfs[bossID]
		for _, spec := range sortedKeys(specs) {
			if !c.catalog.IsProfession(spec) {
				continue
			}
			perf := specs[spec]
			if !c.newerThan(perf.Link, since) {
				continue
			}
			out = append(out, fmt.Sprintf("New best DPS log on %s!\nSpec: %s\nDPS: %s\nLink: %s",
				c.catalog.DisplayName(bossID, false, ""), spec, record.FormatStat(perf.TopDPS), c.logURL(perf.Link)))
		}
	}
	return out
}

func (c *Checker) newTimeLogs(user *storage.User, times map[string]wingman.TopTime, since time.Time) []string {
	var out []string
	for _, bossID := range sortedKeys(times) {
		if !user.Tracks(bossID) {
			continue
		}
		tt := times[bossID]
		if !c.newerThan(tt.Link, since) {
			continue
		}
		out = append(out, fmt.Sprintf("New fastest log on %s!\nTime: %s\nLink: %s",
			c.catalog.DisplayName(bossID, false, ""), notify.FormatDuration(tt.DurationMS), c.logURL(tt.Link)))
	}
	return out
}

func (c *Checker) newerThan(link string, since time.Time) bool {
	ts, err := LogTimestamp(link)
	if err != nil {
		slog.Warn("Skipping log with unparseable link", "link", link, "error", err)
		return false
	}
	return ts.After(since)
}

func (c *Checker) logURL(link string) string {
	return c.baseURL + "/log/" + link
}

// LogTimestamp parses the upload time embedded in a log link.
// Links with one hyphen start with the timestamp; links with two carry it at
// offset 5. Anything else is record.ErrMalformedLink.
func LogTimestamp(link string) (time.Time, error) {
	var raw string
	switch strings.Count(link, "-") {
	case 1:
		if len(link) < 15 {
			return time.Time{}, fmt.Errorf("%w: %q too short", record.ErrMalformedLink, link)
		}
		raw = link[:15]
	case 2:
		if len(link) < 20 {
			return time.Time{}, fmt.Errorf("%w: %q too short", record.ErrMalformedLink, link)
		}
		raw = link[5:20]
	default:
		return time.Time{}, fmt.Errorf("%w: %q", record.ErrMalformedLink, link)
	}

	ts, err := time.ParseInLocation(linkLayout, raw, logZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", record.ErrMalformedLink, link, err)
	}
	return ts, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
