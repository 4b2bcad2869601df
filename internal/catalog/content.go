package catalog

import (
	"fmt"
	"slices"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/wingman"
)

// Content is a user-facing group of boss ids
type Content string

const (
	ContentFractals  Content = "fractals"
	ContentRaids     Content = "raids"
	ContentRaidsCM   Content = "raids cm"
	ContentStrikes   Content = "strikes"
	ContentStrikesCM Content = "strikes cm"
	ContentGolem     Content = "golem"
	ContentAll       Content = "all"
)

// TrackableContents are the choices offered to channel and user tracking commands
var TrackableContents = []Content{
	ContentFractals, ContentRaids, ContentRaidsCM, ContentStrikes, ContentStrikesCM, ContentGolem, ContentAll,
}

// FlexContents are the broader groups used by the leaderboard command,
// each including both normal and CM ids
var FlexContents = []Content{ContentRaids, ContentFractals, ContentStrikes, ContentAll}

// Categories are the content types a newly released boss can be filed under
var Categories = []Content{ContentFractals, ContentRaids, ContentStrikes, ContentGolem}

const (
	// full fractal encounter log, not a boss
	fullEncounterID = "-232543"
	// training-area strike without a leaderboard
	freezieID = "21333"
	// strikes before this index never had a CM
	firstStrikeCM = 5
)

// exampleBoss is a long-lived boss of each category; channels tracking it are
// assumed to track the whole category
var exampleBoss = map[Content]string{
	ContentRaids:    "19450",
	ContentStrikes:  "22343",
	ContentFractals: "-17759",
	ContentGolem:    "16199",
}

// ParseContent validates a content name
func ParseContent(s string) (Content, error) {
	c := Content(s)
	if slices.Contains(TrackableContents, c) {
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown content type %q", record.ErrInvalidArgument, s)
}

// ExampleBoss returns the sibling boss used to find channels tracking a category
func ExampleBoss(category Content) (string, error) {
	id, ok := exampleBoss[category]
	if !ok {
		return "", fmt.Errorf("%w: unknown boss category %q", record.ErrInvalidArgument, category)
	}
	return id, nil
}

// SupportsType reports whether channels may subscribe to rt for content
func SupportsType(content Content, rt record.Type) bool {
	if content == ContentGolem {
		return rt == record.TypeDPS
	}
	return rt.Valid()
}

func buildContent(raw []wingman.Boss) map[Content][]string {
	var fractals, strikes, raids, golems []string
	for _, b := range raw {
		switch Kind(b.Type) {
		case KindFractal:
			if id := "-" + b.ID; id != fullEncounterID {
				fractals = append(fractals, id)
			}
		case KindStrike:
			if b.ID != freezieID {
				strikes = append(strikes, b.ID)
			}
		case KindRaid:
			raids = append(raids, b.ID)
		case KindGolem:
			golems = append(golems, b.ID)
		}
	}

	raidsCM := negate(raids)
	var strikesCM []string
	if len(strikes) > firstStrikeCM {
		strikesCM = negate(strikes[firstStrikeCM:])
	}

	all := slices.Concat(fractals, strikes, strikesCM, raids, raidsCM)
	return map[Content][]string{
		ContentFractals:  fractals,
		ContentRaids:     raids,
		ContentRaidsCM:   raidsCM,
		ContentStrikes:   strikes,
		ContentStrikesCM: strikesCM,
		ContentGolem:     golems,
		ContentAll:       all,
	}
}

func negate(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "-" + id
	}
	return out
}

// BossIDs returns the ids in a trackable content list, in catalog order
func (c *Catalog) BossIDs(content Content) ([]string, error) {
	if _, err := ParseContent(string(content)); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.content[content]), nil
}

// BossSet returns the ids covered by a leaderboard content group.
// Raids and strikes include their CM variants.
func (c *Catalog) BossSet(content Content) (map[string]struct{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var lists [][]string
	switch content {
	case ContentRaids:
		lists = [][]string{c.content[ContentRaids], c.content[ContentRaidsCM]}
	case ContentStrikes:
		lists = [][]string{c.content[ContentStrikes], c.content[ContentStrikesCM]}
	case ContentFractals:
		lists = [][]string{c.content[ContentFractals]}
	case ContentAll:
		lists = [][]string{c.content[ContentAll]}
	default:
		return nil, fmt.Errorf("%w: unknown leaderboard content %q", record.ErrInvalidArgument, content)
	}

	set := make(map[string]struct{})
	for _, ids := range lists {
		for _, id := range ids {
			set[id] = struct{}{}
		}
	}
	return set, nil
}
