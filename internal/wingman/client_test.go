package wingman

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/bosses", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"19450": {"name": "Dhuum", "icon": "/static/dhuum.png", "type": "raid"},
			"17759": {"name": "Arkk", "icon": "/static/arkk.png", "type": "fractal"},
			"22343": {"name": "Ankka", "icon": "/static/ankka.png", "type": "strike"}
		}`))
	})
	mux.HandleFunc("/api/patches", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"patches": [{"id": "24-06", "from": "2024-06-25"}, {"id": "24-03", "from": "2024-03-19"}]}`))
	})
	mux.HandleFunc("/api/classes", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Firebrand": {}, "Scourge": {}, "Guardian": {}}`))
	})
	mux.HandleFunc("/api/getPlayerStats", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "good-key" {
			w.Write([]byte(`{"error": "unknown apikey"}`))
			return
		}
		w.Write([]byte(`{
			"account": "Bar.1234",
			"topBossTimes": {"24-06": {"19450": {"durationMS": 125000, "link": "20240701-203040_dhuum"}}, "all": {}},
			"topPerformances": {"24-06": {"19450": {"Firebrand": {"topDPS": 41000, "link": "20240701-203040_dhuum"}}}}
		}`))
	})
	mux.HandleFunc("/api/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBossesPreservesOrder(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, time.Second, WithRate(100))

	bosses, err := c.Bosses(context.Background())
	require.NoError(t, err)
	require.Len(t, bosses, 3)
	assert.Equal(t, []string{"19450", "17759", "22343"}, []string{bosses[0].ID, bosses[1].ID, bosses[2].ID})
	assert.Equal(t, "Dhuum", bosses[0].Name)
	assert.Equal(t, "fractal", bosses[1].Type)
}

func TestPatchesAndProfessions(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, time.Second)

	patches, err := c.Patches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "24-06", patches[0].ID)

	profs, err := c.Professions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Firebrand", "Scourge", "Guardian"}, profs)
}

func TestPlayerStats(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, time.Second)

	stats, err := c.PlayerStats(context.Background(), "good-key")
	require.NoError(t, err)
	assert.Equal(t, "Bar.1234", stats.Account)
	assert.Equal(t, int64(125000), stats.TopBossTimes["24-06"]["19450"].DurationMS)
	assert.Equal(t, float64(41000), stats.TopPerformances["24-06"]["19450"]["Firebrand"].TopDPS)

	_, err = c.PlayerStats(context.Background(), "bad-key")
	assert.ErrorIs(t, err, record.ErrInvalidCredential)
	assert.ErrorIs(t, c.ValidateAPIKey(context.Background(), ""), record.ErrInvalidCredential)
	assert.NoError(t, c.ValidateAPIKey(context.Background(), "good-key"))
}

func TestUpstreamErrors(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, time.Second)

	var out map[string]any
	err := c.get(context.Background(), "/api/broken", nil, &out)
	assert.ErrorIs(t, err, record.ErrUpstreamUnavailable)
	assert.True(t, IsUpstream(err))

	srv.Close()
	_, err = c.Patches(context.Background())
	assert.ErrorIs(t, err, record.ErrUpstreamUnavailable)
}

func TestBaseURLTrimsSlash(t *testing.T) {
	c := NewClient("https://example.test/", time.Second)
	assert.Equal(t, "https://example.test", c.BaseURL())
}
