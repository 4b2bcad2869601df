package pb

import (
	"context"
	"errors"
	"fmt"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/catalog"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/notify"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/storage"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/wingman"
)

// LatestEra selects the current patch in a flex request
const LatestEra = "latest"

// OverallSpec is the pseudo-spec covering every specialization
const OverallSpec = "overall"

// ErrNoLogs means the user has no logs matching the flex filters
var ErrNoLogs = errors.New("no logs found")

// BossSets resolves leaderboard content groups
type BossSets interface {
	BossSet(content catalog.Content) (map[string]struct{}, error)
}

// FlexRequest filters a leaderboard summary
type FlexRequest struct {
	Leaderboard record.Type
	EraID       string
	Content     catalog.Content
	Spec        string
}

// Leaderboard is a user's best logs, chunked to fit embed fields
type Leaderboard struct {
	Account string
	EraID   string
	Title   string
	Bosses  []string
	Stats   []string
}

// Flex builds the leaderboard summary of a user's best logs
func (c *Checker) Flex(ctx context.Context, userID string, sets BossSets, req FlexRequest) (*Leaderboard, error) {
	if req.Spec == "" {
		req.Spec = OverallSpec
	}
	if req.Leaderboard == record.TypeTime && req.Spec != OverallSpec {
		return nil, fmt.Errorf("%w: time leaderboard cannot be filtered by specialization", record.ErrInvalidArgument)
	}
	if req.Spec != OverallSpec && !c.catalog.IsProfession(req.Spec) {
		return nil, fmt.Errorf("%w: unknown specialization %q", record.ErrInvalidArgument, req.Spec)
	}
	if req.EraID == "" || req.EraID == LatestEra {
		req.EraID = c.eras.Current().ID
	}

	wanted, err := sets.BossSet(req.Content)
	if err != nil {
		return nil, err
	}

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

	stats, err := c.stats.PlayerStats(ctx, user.APIKey)
	if err != nil {
		return nil, err
	}

	var bosses, values []string
	completed := stats.TopBossTimes[req.EraID]
	for _, bossID := range sortedKeys(completed) {
		if _, ok := wanted[bossID]; !ok {
			continue
		}
		name := c.catalog.DisplayName(bossID, false, "")

		var link, stat string
		switch req.Leaderboard {
		case record.TypeTime:
			tt := completed[bossID]
			link, stat = tt.Link, notify.FormatDuration(tt.DurationMS)
		case record.TypeDPS, record.TypeSupportDPS:
			perfs := stats.TopPerformances
			if req.Leaderboard == record.TypeSupportDPS {
				perfs = stats.TopPerformancesSupport
			}
			perf, ok := lookupPerformance(perfs, req.EraID, bossID, req.Spec)
			if !ok || (req.Leaderboard == record.TypeSupportDPS && perf.TopDPS == 0) {
				continue
			}
			link, stat = perf.Link, record.FormatStat(perf.TopDPS)
		default:
			return nil, fmt.Errorf("%w: unknown leaderboard %s", record.ErrInvalidArgument, req.Leaderboard)
		}
		bosses = append(bosses, fmt.Sprintf("[%s](%s)", name, c.logURL(link)))
		values = append(values, stat)
	}

	if len(bosses) == 0 {
		return nil, ErrNoLogs
	}
	bossChunks, statChunks := notify.EmbedWrap(bosses, values)
	return &Leaderboard{
		Account: stats.Account,
		EraID:   req.EraID,
		Title:   req.Leaderboard.Title(),
		Bosses:  bossChunks,
		Stats:   statChunks,
	}, nil
}

func lookupPerformance(perfs map[string]map[string]map[string]wingman.TopPerformance, eraID, bossID, spec string) (wingman.TopPerformance, bool) {
	perf, ok := perfs[eraID][bossID][spec]
	return perf, ok
}
