package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/catalog"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/era"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/notify"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/storage"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/wingman"
)

type delivery struct {
	channelID string
	embed     *discordgo.MessageEmbed
	content   string
}

type recordingSender struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (s *recordingSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, delivery{channelID: channelID, embed: embed})
	return &discordgo.Message{}, nil
}

func (s *recordingSender) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, delivery{channelID: channelID, content: content})
	return &discordgo.Message{}, nil
}

func (s *recordingSender) all() []delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery(nil), s.deliveries...)
}

type fixture struct {
	repo       *storage.Repository
	sender     *recordingSender
	dispatcher *notify.Dispatcher
	server     *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.NewRepository(ctx, filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	cat := catalog.New("https://wingman.test", []wingman.Boss{
		{ID: "19450", Name: "Dhuum", Icon: "/static/dhuum.png", Type: "raid"},
	}, []string{"Guardian"})
	eras := era.NewResolver(nil, era.WithPatches([]wingman.Patch{{ID: "24-06", From: "2024-06-25"}, {ID: "24-03", From: "2024-03-19"}}))

	sender := &recordingSender{}
	dispatcher := notify.NewDispatcher(repo, sender, "")
	pipeline := notify.NewPipeline(eras, notify.NewFormatter(cat, "https://wingman.test", nil), dispatcher, notify.Channels{
		ReportedLogs: "reported",
		Internal:     "internal",
	})

	srv := httptest.NewServer(NewServer(":0", pipeline, repo.Ping).Handler())
	t.Cleanup(srv.Close)
	return &fixture{repo: repo, sender: sender, dispatcher: dispatcher, server: srv}
}

func (f *fixture) post(t *testing.T, path, contentType, body string) string {
	t.Helper()
	resp, err := http.Post(f.server.URL+path, contentType, strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	f.dispatcher.Wait()
	return string(b)
}

const dpsPayload = `{"type":"dps","bossID":"-19450","eraID":"24-06","dps":50000,"previousDps":48000,"character":"Foo","profession":"Guardian","account":"Bar.1234","group":[],"link":"abc","groupIcons":["default"]}`

func TestPatchRecordEndToEnd(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.Subscribe(context.Background(), storage.ChannelSubscription{
		ChannelID: "42", BossID: "-19450", RecordType: record.TypeDPS,
	}))

	assert.Equal(t, "Success", f.post(t, "/patchrecord/", "application/json", dpsPayload))

	got := f.sender.all()
	require.Len(t, got, 1)
	assert.Equal(t, "42", got[0].channelID)
	assert.Equal(t, "New DPS record log on Dhuum CM", got[0].embed.Title)
	assert.Equal(t, "50000 (+2000)", got[0].embed.Fields[0].Value)
}

func TestPatchRecordSuppressed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.Subscribe(context.Background(), storage.ChannelSubscription{
		ChannelID: "42", BossID: "-19450", RecordType: record.TypeDPS,
	}))

	conjured := strings.Replace(dpsPayload, `"Bar.1234"`, `"Conjured Sword"`, 1)
	assert.Equal(t, "Success", f.post(t, "/patchrecord/", "application/json", conjured))

	noProfession := strings.Replace(dpsPayload, `"profession":"Guardian"`, `"profession":null`, 1)
	assert.Equal(t, "Success", f.post(t, "/patchrecord/", "application/json", noProfession))

	stale := strings.Replace(dpsPayload, `"24-06"`, `"24-03"`, 1)
	assert.Equal(t, "Success", f.post(t, "/patchrecord/", "application/json", stale))

	assert.Empty(t, f.sender.all())
}

func TestPatchRecordRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "Content-Type not supported!", f.post(t, "/patchrecord/", "text/plain", dpsPayload))
	assert.Equal(t, "Fail", f.post(t, "/patchrecord/", "application/json", `{"bossID":"1"}`))
	assert.Equal(t, "Fail", f.post(t, "/patchrecord/", "application/json", `{"type":"heal","bossID":"1"}`))
	assert.Equal(t, "Fail", f.post(t, "/patchrecord/", "application/json", `{not json`))
	assert.Equal(t, "Success", f.post(t, "/patchrecord/", "application/json; charset=utf-8", `{"type":"time","bossID":"1","eraID":"all"}`))
	assert.Empty(t, f.sender.all())
}

func TestAuxiliaryRelays(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, "Success", f.post(t, "/reportlog/", "application/json",
		`{"link":"abc","reason":"wrong boss","bossID":"19450","bossName":"Dhuum","duration":301.5}`))
	assert.Equal(t, "Success", f.post(t, "/internalmessage/", "application/json", `{"message":"hello"}`))
	assert.Equal(t, "Fail", f.post(t, "/internalmessage/", "application/json", `{}`))
	assert.Equal(t, "Content-Type not supported!", f.post(t, "/reportlog/", "application/x-www-form-urlencoded", "a=b"))

	got := f.sender.all()
	require.Len(t, got, 2)
	byChannel := map[string]delivery{}
	for _, d := range got {
		byChannel[d.channelID] = d
	}
	assert.Equal(t, "Log reported on Dhuum, reason: wrong boss", byChannel["reported"].embed.Title)
	assert.Equal(t, "301.5", byChannel["reported"].embed.Fields[0].Value)
	assert.Equal(t, "hello", byChannel["internal"].content)
}

type failingRelay struct{}

func (failingRelay) PatchRecord(context.Context, record.Event) (notify.Report, error) {
	return notify.Report{}, errors.New("database is locked")
}
func (failingRelay) ReportedLog(context.Context, record.ReportedLog) error { return nil }
func (failingRelay) InternalMessage(context.Context, record.InternalMessage) error {
	return nil
}

func TestPatchRecordRelayError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/patchrecord/", strings.NewReader(dpsPayload))
	req.Header.Set("Content-Type", "application/json")

	NewServer(":0", failingRelay{}, nil).Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Fail", rec.Body.String())
}

func TestHealthAndRoot(t *testing.T) {
	h := NewServer(":0", failingRelay{}, func(context.Context) error { return errors.New("down") }).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "Hello World", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
