package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/obs"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
)

// Sender delivers messages to Discord channels. *discordgo.Session satisfies it.
type Sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ChannelLookup resolves the channels subscribed to a boss and record type
type ChannelLookup interface {
	ChannelsFor(ctx context.Context, bossID string, rt record.Type, lowman bool) ([]string, error)
}

// Target selects the subscribers of one notification
type Target struct {
	BossID string
	Type   record.Type
	Lowman bool
	Debug  bool
}

// Report lists the channels a notification was handed to
type Report struct {
	Channels []string
}

// Dispatcher fans a rendered notification out to subscribed channels.
// Each delivery runs on its own goroutine and fails independently.
type Dispatcher struct {
	lookup       ChannelLookup
	sender       Sender
	debugChannel string

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. debugChannel may be empty.
func NewDispatcher(lookup ChannelLookup, sender Sender, debugChannel string) *Dispatcher {
	return &Dispatcher{lookup: lookup, sender: sender, debugChannel: debugChannel}
}

// Dispatch starts one delivery per subscribed channel and returns without
// waiting for them. No subscribers is not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, t Target, embed *discordgo.MessageEmbed) (Report, error) {
	var channels []string
	if t.Debug {
		if d.debugChannel == "" {
			slog.Warn("Debug record received but no debug channel is configured", "boss", t.BossID)
			return Report{}, nil
		}
		channels = []string{d.debugChannel}
	} else {
		var err error
		channels, err = d.lookup.ChannelsFor(ctx, t.BossID, t.Type, t.Lowman)
		if err != nil {
			return Report{}, fmt.Errorf("failed to look up channels for boss %s: %w", t.BossID, err)
		}
	}

	if len(channels) == 0 {
		slog.Debug("Nobody wanted this ping", "boss", t.BossID, "type", t.Type)
		return Report{}, nil
	}

	for _, channelID := range channels {
		d.SendEmbed(channelID, t.Type.String(), embed)
	}
	return Report{Channels: channels}, nil
}

// SendEmbed delivers an embed to one channel in the background
func (d *Dispatcher) SendEmbed(channelID, label string, embed *discordgo.MessageEmbed) {
	d.deliver(channelID, label, func() error {
		_, err := d.sender.ChannelMessageSendEmbed(channelID, embed)
		return err
	})
}

// SendText delivers plain text to one channel in the background
func (d *Dispatcher) SendText(channelID, label, content string) {
	d.deliver(channelID, label, func() error {
		_, err := d.sender.ChannelMessageSend(channelID, content)
		return err
	})
}

func (d *Dispatcher) deliver(channelID, label string, send func() error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		slog.Warn("Dispatcher closed, dropping delivery", "channel", channelID, "type", label)
		obs.Delivery(label, "dropped")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		if err := send(); err != nil {
			err = fmt.Errorf("%w: channel %s: %v", record.ErrDeliveryFailed, channelID, err)
			slog.Error("Failed to write to channel", "channel", channelID, "type", label, "error", err)
			obs.Delivery(label, "failed")
			return
		}
		obs.Delivery(label, "ok")
		slog.Debug("Sent notification", "channel", channelID, "type", label)
	}()
}

// Wait blocks until every started delivery has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting deliveries and waits for the started ones.
// Sends racing with Close are dropped rather than started.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
