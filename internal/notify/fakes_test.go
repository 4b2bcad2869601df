package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/catalog"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/era"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/wingman"
)

const testBaseURL = "https://wingman.test"

type sent struct {
	channelID string
	embed     *discordgo.MessageEmbed
	content   string
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sent
	failOn map[string]bool
}

func (s *fakeSender) record(m sent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[m.channelID] {
		return errors.New("missing access")
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *fakeSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{ChannelID: channelID}, s.record(sent{channelID: channelID, embed: embed})
}

func (s *fakeSender) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{ChannelID: channelID}, s.record(sent{channelID: channelID, content: content})
}

func (s *fakeSender) messages() []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sent(nil), s.sent...)
}

type staticLookup struct {
	channels []string
	err      error

	mu    sync.Mutex
	calls int
}

func (l *staticLookup) ChannelsFor(context.Context, string, record.Type, bool) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.channels, l.err
}

type fixedEras map[string]era.Kind

func (f fixedEras) Resolve(_ context.Context, eraID string) era.Kind {
	if k, ok := f[eraID]; ok {
		return k
	}
	return era.Current
}

func newTestFormatter(emojis EmojiResolver) *Formatter {
	cat := catalog.New(testBaseURL, []wingman.Boss{
		{ID: "19450", Name: "Dhuum", Icon: "/static/dhuum.png", Type: "raid"},
		{ID: "17759", Name: "Arkk", Icon: "/static/arkk.png", Type: "fractal"},
	}, []string{"Guardian", "Firebrand"})
	return NewFormatter(cat, testBaseURL, emojis)
}

func strPtr(s string) *string { return &s }
