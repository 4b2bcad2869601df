package wingman

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
)

// Boss is one entry of /api/bosses
type Boss struct {
	ID   string `json:"-"`
	Name string `json:"name"`
	Icon string `json:"icon"`
	Type string `json:"type"`
}

// Patch is one entry of /api/patches, most recent first
type Patch struct {
	ID   string `json:"id"`
	From string `json:"from"`
}

// TopPerformance is a player's best DPS log for one spec on one boss
type TopPerformance struct {
	TopDPS float64 `json:"topDPS"`
	Link   string  `json:"link"`
}

// TopTime is a player's fastest log on one boss
type TopTime struct {
	DurationMS int64  `json:"durationMS"`
	Link       string `json:"link"`
}

// PlayerStats is the /api/getPlayerStats snapshot for one API key.
// Maps are keyed era id -> boss id (-> spec).
type PlayerStats struct {
	Account                string                                          `json:"account"`
	TopPerformances        map[string]map[string]map[string]TopPerformance `json:"topPerformances"`
	TopPerformancesSupport map[string]map[string]map[string]TopPerformance `json:"topPerformancesSupport"`
	TopBossTimes           map[string]map[string]TopTime                   `json:"topBossTimes"`
}

// Bosses retrieves the boss table in the order the API returns it
func (c *Client) Bosses(ctx context.Context) ([]Boss, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/bosses", nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to get bosses: %w", err)
	}

	keys, values, err := orderedObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode bosses: %v", record.ErrUpstreamUnavailable, err)
	}

	bosses := make([]Boss, 0, len(keys))
	for i, key := range keys {
		var b Boss
		if err := json.Unmarshal(values[i], &b); err != nil {
			return nil, fmt.Errorf("%w: failed to decode boss %s: %v", record.ErrUpstreamUnavailable, key, err)
		}
		b.ID = key
		bosses = append(bosses, b)
	}
	return bosses, nil
}

// Patches retrieves the patch list, most recent first
func (c *Client) Patches(ctx context.Context) ([]Patch, error) {
	var resp struct {
		Patches []Patch `json:"patches"`
	}
	if err := c.get(ctx, "/api/patches", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get patches: %w", err)
	}
	if len(resp.Patches) == 0 {
		return nil, fmt.Errorf("%w: empty patch list", record.ErrUpstreamUnavailable)
	}
	return resp.Patches, nil
}

// Professions retrieves the specialization names known to the site
func (c *Client) Professions(ctx context.Context) ([]string, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/classes", nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to get classes: %w", err)
	}
	keys, _, err := orderedObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode classes: %v", record.ErrUpstreamUnavailable, err)
	}
	return keys, nil
}

// PlayerStats retrieves the stats snapshot for an API key.
// A key the site does not know yields record.ErrInvalidCredential.
func (c *Client) PlayerStats(ctx context.Context, apiKey string) (*PlayerStats, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/api/getPlayerStats", url.Values{"apikey": {apiKey}}, &raw); err != nil {
		return nil, fmt.Errorf("failed to get player stats: %w", err)
	}

	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: failed to decode player stats: %v", record.ErrUpstreamUnavailable, err)
	}
	if probe.Error != nil {
		return nil, fmt.Errorf("%w: %s", record.ErrInvalidCredential, string(probe.Error))
	}

	stats := &PlayerStats{}
	if err := json.Unmarshal(raw, stats); err != nil {
		return nil, fmt.Errorf("%w: failed to decode player stats: %v", record.ErrUpstreamUnavailable, err)
	}
	return stats, nil
}

// ValidateAPIKey checks an API key against the site
func (c *Client) ValidateAPIKey(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("%w: empty key", record.ErrInvalidCredential)
	}
	_, err := c.PlayerStats(ctx, apiKey)
	return err
}

// orderedObject splits a JSON object into keys and raw values, preserving order
func orderedObject(raw []byte) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var (
		keys   []string
		values []json.RawMessage
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected key, got %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values = append(values, v)
	}
	return keys, values, nil
}
