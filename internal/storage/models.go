package storage

import (
	"time"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
)

// ChannelSubscription says a channel wants pings for one boss and record type
type ChannelSubscription struct {
	ChannelID  string
	BossID     string
	RecordType record.Type
	LowmanOnly bool // only lowman clears
}

// User is a Discord user who registered a gw2wingman API key
type User struct {
	UserID         string
	APIKey         string
	TrackedBossIDs map[string]struct{}
	LastChecked    *time.Time
}

// Tracks reports whether the user tracks bossID
func (u *User) Tracks(bossID string) bool {
	_, ok := u.TrackedBossIDs[bossID]
	return ok
}

// ChannelSummary is one subscribed channel with the record types it receives
type ChannelSummary struct {
	ChannelID string
	Types     []record.Type
	Bosses    int
}
