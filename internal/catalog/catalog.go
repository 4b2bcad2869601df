package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/wingman"
)

// Kind is the content category a boss belongs to
type Kind string

const (
	KindRaid    Kind = "raid"
	KindStrike  Kind = "strike"
	KindFractal Kind = "fractal"
	KindGolem   Kind = "golem"
)

// Boss is an immutable catalog entry
type Boss struct {
	ID   string
	Name string
	Icon string
	Kind Kind
}

// Source loads the raw tables the catalog is built from
type Source interface {
	Bosses(ctx context.Context) ([]wingman.Boss, error)
	Professions(ctx context.Context) ([]string, error)
}

// Catalog maps boss ids to names, icons and content lists.
// Readers always see a complete table; Refresh swaps it whole.
type Catalog struct {
	mu      sync.RWMutex
	src     Source
	baseURL string
	bosses  map[string]Boss
	content map[Content][]string
	profs   []string
}

// New builds a catalog from already-fetched tables
func New(baseURL string, bosses []wingman.Boss, professions []string) *Catalog {
	c := &Catalog{baseURL: strings.TrimRight(baseURL, "/")}
	c.swap(bosses, professions)
	return c
}

// Load fetches the tables from src and builds a catalog
func Load(ctx context.Context, baseURL string, src Source) (*Catalog, error) {
	c := &Catalog{baseURL: strings.TrimRight(baseURL, "/")}
	c.src = src
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh re-fetches the boss and profession tables
func (c *Catalog) Refresh(ctx context.Context) error {
	c.mu.RLock()
	src := c.src
	c.mu.RUnlock()
	if src == nil {
		return nil
	}

	bosses, err := src.Bosses(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bosses: %w", err)
	}
	profs, err := src.Professions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load professions: %w", err)
	}
	c.swap(bosses, profs)
	return nil
}

func (c *Catalog) swap(raw []wingman.Boss, profs []string) {
	bosses := make(map[string]Boss, len(raw))
	for _, b := range raw {
		bosses[b.ID] = Boss{ID: b.ID, Name: b.Name, Icon: b.Icon, Kind: Kind(b.Type)}
	}
	content := buildContent(raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.bosses = bosses
	c.content = content
	c.profs = slices.Clone(profs)
}

// BaseID strips the CM sign from a boss id
func BaseID(id string) string {
	return strings.TrimPrefix(id, "-")
}

// IsCM reports whether id denotes a challenge mote variant
func IsCM(id string) bool {
	return strings.HasPrefix(id, "-")
}

// Get returns the catalog entry for id (sign stripped)
func (c *Catalog) Get(id string) (Boss, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bosses[BaseID(id)]
	return b, ok
}

// Len returns the number of base bosses in the catalog
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.bosses)
}

// DisplayName returns the boss name with a CM or LCM suffix for negative ids.
// fallback is used when the catalog has no entry for the boss.
func (c *Catalog) DisplayName(id string, legendary bool, fallback string) string {
	name := fallback
	if b, ok := c.Get(id); ok {
		name = b.Name
	}
	if name == "" {
		name = BaseID(id)
	}
	if !IsCM(id) {
		return name
	}
	if legendary {
		return name + " LCM"
	}
	return name + " CM"
}

// IconURL returns the absolute icon URL of a boss, or "" if unknown
func (c *Catalog) IconURL(id string) string {
	b, ok := c.Get(id)
	if !ok || b.Icon == "" {
		return ""
	}
	if strings.HasPrefix(b.Icon, "http://") || strings.HasPrefix(b.Icon, "https://") {
		return b.Icon
	}
	return c.baseURL + b.Icon
}

// Professions returns the known specialization names
func (c *Catalog) Professions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.profs)
}

// IsProfession reports whether name is a known specialization
func (c *Catalog) IsProfession(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.profs, name)
}
