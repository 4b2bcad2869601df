package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a user has never registered
var ErrNotFound = errors.New("not found")

// Repository handles all database operations
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new repository with SQLite and applies migrations
func NewRepository(ctx context.Context, dbPath string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: db}

	if err := repo.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping checks the database is reachable
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate applies the embedded goose migrations
func (r *Repository) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, r.db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Channel subscription operations

func validateSubscription(sub ChannelSubscription) error {
	if strings.TrimSpace(sub.ChannelID) == "" || strings.TrimSpace(sub.BossID) == "" {
		return fmt.Errorf("%w: channel and boss id are required", record.ErrInvalidArgument)
	}
	if !sub.RecordType.Valid() {
		return fmt.Errorf("%w: unknown record type %s", record.ErrInvalidArgument, sub.RecordType)
	}
	return nil
}

// Subscribe adds a channel subscription. Duplicates are tolerated.
func (r *Repository) Subscribe(ctx context.Context, sub ChannelSubscription) error {
	if err := validateSubscription(sub); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO channel_subscriptions (channel_id, boss_id, record_type, lowman_only) VALUES (?, ?, ?, ?)`,
		sub.ChannelID, sub.BossID, sub.RecordType.String(), sub.LowmanOnly,
	)
	return err
}

// Unsubscribe removes every row matching the subscription key
func (r *Repository) Unsubscribe(ctx context.Context, sub ChannelSubscription) error {
	if err := validateSubscription(sub); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM channel_subscriptions WHERE channel_id = ? AND boss_id = ? AND record_type = ? AND lowman_only = ?`,
		sub.ChannelID, sub.BossID, sub.RecordType.String(), sub.LowmanOnly,
	)
	return err
}

// SubscribeMany subscribes a channel to each boss in turn. A failure part way
// leaves the earlier rows in place; re-running is harmless.
func (r *Repository) SubscribeMany(ctx context.Context, channelID string, bossIDs []string, rt record.Type, lowmanOnly bool) error {
	for _, bossID := range bossIDs {
		sub := ChannelSubscription{ChannelID: channelID, BossID: bossID, RecordType: rt, LowmanOnly: lowmanOnly}
		if err := r.Subscribe(ctx, sub); err != nil {
			return fmt.Errorf("failed to subscribe boss %s: %w", bossID, err)
		}
	}
	return nil
}

// UnsubscribeMany is the inverse of SubscribeMany
func (r *Repository) UnsubscribeMany(ctx context.Context, channelID string, bossIDs []string, rt record.Type, lowmanOnly bool) error {
	for _, bossID := range bossIDs {
		sub := ChannelSubscription{ChannelID: channelID, BossID: bossID, RecordType: rt, LowmanOnly: lowmanOnly}
		if err := r.Unsubscribe(ctx, sub); err != nil {
			return fmt.Errorf("failed to unsubscribe boss %s: %w", bossID, err)
		}
	}
	return nil
}

// ChannelsFor returns the channels subscribed to a boss and record type.
// Lowman-only subscriptions are included only when lowman is set.
func (r *Repository) ChannelsFor(ctx context.Context, bossID string, rt record.Type, lowman bool) ([]string, error) {
	query := `SELECT DISTINCT channel_id FROM channel_subscriptions WHERE boss_id = ? AND record_type = ?`
	if !lowman {
		query += ` AND lowman_only = 0`
	}
	rows, err := r.db.QueryContext(ctx, query+` ORDER BY channel_id`, bossID, rt.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		channels = append(channels, id)
	}

	return channels, rows.Err()
}

// SubscriptionsForBoss returns the distinct (channel, type, lowman) keys tracking a boss
func (r *Repository) SubscriptionsForBoss(ctx context.Context, bossID string) ([]ChannelSubscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT channel_id, record_type, lowman_only FROM channel_subscriptions WHERE boss_id = ?`,
		bossID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []ChannelSubscription
	for rows.Next() {
		var (
			sub ChannelSubscription
			rt  string
		)
		if err := rows.Scan(&sub.ChannelID, &rt, &sub.LowmanOnly); err != nil {
			return nil, err
		}
		if sub.RecordType, err = record.ParseType(rt); err != nil {
			return nil, err
		}
		sub.BossID = bossID
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

// CopySubscriptions subscribes every channel tracking fromBoss to toBoss as well.
// It returns the number of subscriptions added.
func (r *Repository) CopySubscriptions(ctx context.Context, fromBoss, toBoss string) (int, error) {
	subs, err := r.SubscriptionsForBoss(ctx, fromBoss)
	if err != nil {
		return 0, fmt.Errorf("failed to read subscriptions for %s: %w", fromBoss, err)
	}
	for i, sub := range subs {
		sub.BossID = toBoss
		if err := r.Subscribe(ctx, sub); err != nil {
			return i, fmt.Errorf("failed to add boss %s to channel %s: %w", toBoss, sub.ChannelID, err)
		}
	}
	return len(subs), nil
}

// RemoveSiblingSubscriptions drops bossID from every channel that tracks sibling.
// It returns the number of channel keys processed.
func (r *Repository) RemoveSiblingSubscriptions(ctx context.Context, sibling, bossID string) (int, error) {
	subs, err := r.SubscriptionsForBoss(ctx, sibling)
	if err != nil {
		return 0, fmt.Errorf("failed to read subscriptions for %s: %w", sibling, err)
	}
	for i, sub := range subs {
		sub.BossID = bossID
		if err := r.Unsubscribe(ctx, sub); err != nil {
			return i, fmt.Errorf("failed to remove boss %s from channel %s: %w", bossID, sub.ChannelID, err)
		}
	}
	return len(subs), nil
}

// PruneChannel deletes every subscription of a channel
func (r *Repository) PruneChannel(ctx context.Context, channelID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM channel_subscriptions WHERE channel_id = ?`, channelID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SubscribedChannels summarizes every channel with at least one subscription
func (r *Repository) SubscribedChannels(ctx context.Context) ([]ChannelSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT channel_id, record_type, COUNT(DISTINCT boss_id) FROM channel_subscriptions GROUP BY channel_id, record_type ORDER BY channel_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byChannel := make(map[string]*ChannelSummary)
	var order []string
	for rows.Next() {
		var (
			channelID, rt string
			bosses        int
		)
		if err := rows.Scan(&channelID, &rt, &bosses); err != nil {
			return nil, err
		}
		t, err := record.ParseType(rt)
		if err != nil {
			return nil, err
		}
		summary, ok := byChannel[channelID]
		if !ok {
			summary = &ChannelSummary{ChannelID: channelID}
			byChannel[channelID] = summary
			order = append(order, channelID)
		}
		summary.Types = append(summary.Types, t)
		summary.Bosses += bosses
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summaries := make([]ChannelSummary, 0, len(order))
	for _, id := range order {
		s := byChannel[id]
		sort.Slice(s.Types, func(i, j int) bool { return s.Types[i] < s.Types[j] })
		summaries = append(summaries, *s)
	}
	return summaries, nil
}

// User operations

// SetUserKey stores a user's API key, replacing any older key.
// The caller validates the key against the stats service first.
func (r *Repository) SetUserKey(ctx context.Context, userID, apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("%w: empty api key", record.ErrInvalidCredential)
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", record.ErrInvalidArgument)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, api_key, last_checked) VALUES (?, ?, NULL)
		 ON CONFLICT(user_id) DO UPDATE SET api_key = excluded.api_key, last_checked = NULL, updated_at = ?`,
		userID, apiKey, time.Now().UTC(),
	)
	return err
}

// GetUser returns a registered user with their tracked bosses
func (r *Repository) GetUser(ctx context.Context, userID string) (*User, error) {
	u := &User{UserID: userID, TrackedBossIDs: make(map[string]struct{})}
	var lastChecked sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT api_key, last_checked FROM users WHERE user_id = ?`,
		userID,
	).Scan(&u.APIKey, &lastChecked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if lastChecked.Valid {
		t := time.UnixMilli(lastChecked.Int64).UTC()
		u.LastChecked = &t
	}

	rows, err := r.db.QueryContext(ctx, `SELECT boss_id FROM user_tracked_bosses WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		u.TrackedBossIDs[id] = struct{}{}
	}

	return u, rows.Err()
}

// TrackBosses adds bosses to a user's tracked set and clears last_checked so
// the next check only primes
func (r *Repository) TrackBosses(ctx context.Context, userID string, bossIDs []string) error {
	if err := r.requireUser(ctx, userID); err != nil {
		return err
	}
	for _, id := range bossIDs {
		if _, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_tracked_bosses (user_id, boss_id) VALUES (?, ?)`,
			userID, id,
		); err != nil {
			return fmt.Errorf("failed to track boss %s: %w", id, err)
		}
	}
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_checked = NULL, updated_at = ? WHERE user_id = ?`, time.Now().UTC(), userID)
	return err
}

// UntrackBosses removes bosses from a user's tracked set
func (r *Repository) UntrackBosses(ctx context.Context, userID string, bossIDs []string) error {
	if err := r.requireUser(ctx, userID); err != nil {
		return err
	}
	for _, id := range bossIDs {
		if _, err := r.db.ExecContext(ctx,
			`DELETE FROM user_tracked_bosses WHERE user_id = ? AND boss_id = ?`,
			userID, id,
		); err != nil {
			return fmt.Errorf("failed to untrack boss %s: %w", id, err)
		}
	}
	return nil
}

// SetLastChecked records when a user last ran a PB check
func (r *Repository) SetLastChecked(ctx context.Context, userID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_checked = ?, updated_at = ? WHERE user_id = ?`,
		at.UnixMilli(), time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

func (r *Repository) requireUser(ctx context.Context, userID string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE user_id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return err
}
