package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
)

func TestDispatchIsolatesChannelFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &fakeSender{failOn: map[string]bool{"2": true}}
	d := NewDispatcher(&staticLookup{channels: []string{"1", "2", "3"}}, sender, "")

	report, err := d.Dispatch(context.Background(), Target{BossID: "100", Type: record.TypeDPS}, &discordgo.MessageEmbed{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, report.Channels)

	d.Wait()
	var delivered []string
	for _, m := range sender.messages() {
		delivered = append(delivered, m.channelID)
	}
	assert.ElementsMatch(t, []string{"1", "3"}, delivered)
}

func TestDispatchNoSubscribers(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(&staticLookup{}, sender, "")

	report, err := d.Dispatch(context.Background(), Target{BossID: "100", Type: record.TypeTime}, &discordgo.MessageEmbed{})
	require.NoError(t, err)
	assert.Empty(t, report.Channels)
	d.Wait()
	assert.Empty(t, sender.messages())
}

func TestDispatchDebugOverridesSubscribers(t *testing.T) {
	sender := &fakeSender{}
	lookup := &staticLookup{channels: []string{"1"}}
	d := NewDispatcher(lookup, sender, "999")

	report, err := d.Dispatch(context.Background(), Target{BossID: "100", Type: record.TypeTime, Debug: true}, &discordgo.MessageEmbed{})
	require.NoError(t, err)
	assert.Equal(t, []string{"999"}, report.Channels)
	assert.Zero(t, lookup.calls)
	d.Wait()
	require.Len(t, sender.messages(), 1)
	assert.Equal(t, "999", sender.messages()[0].channelID)
}

func TestDispatchLookupError(t *testing.T) {
	boom := errors.New("database is locked")
	d := NewDispatcher(&staticLookup{err: boom}, &fakeSender{}, "")

	_, err := d.Dispatch(context.Background(), Target{BossID: "100", Type: record.TypeDPS}, &discordgo.MessageEmbed{})
	assert.ErrorIs(t, err, boom)
}

func TestDispatcherCloseDropsLateDeliveries(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &fakeSender{}
	d := NewDispatcher(&staticLookup{channels: []string{"1"}}, sender, "")
	embed := &discordgo.MessageEmbed{Title: "x"}

	d.SendEmbed("1", "dps", embed)
	d.Close()
	require.Len(t, sender.messages(), 1)

	d.SendEmbed("2", "dps", embed)
	d.SendText("3", "internal", "late")
	d.Wait()
	assert.Len(t, sender.messages(), 1)
}

func TestDispatcherCloseWhileSending(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &fakeSender{}
	d := NewDispatcher(&staticLookup{channels: []string{"1", "2"}}, sender, "")
	embed := &discordgo.MessageEmbed{Title: "x"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Dispatch(context.Background(), Target{BossID: "100", Type: record.TypeDPS}, embed)
			assert.NoError(t, err)
		}()
	}
	d.Close()
	wg.Wait()
	d.Wait()

	assert.LessOrEqual(t, len(sender.messages()), 40)
}
