package bot

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/catalog"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
)

// channelTrackRequest is a validated /channeltrackboss or /channeluntrackboss call
type channelTrackRequest struct {
	Type       record.Type
	Content    catalog.Content
	LowmanOnly bool
}

func parseChannelTrack(opts options) (channelTrackRequest, error) {
	rt, err := record.ParseType(opts.stringOr("ping_type", ""))
	if err != nil {
		return channelTrackRequest{}, err
	}
	content, err := catalog.ParseContent(opts.stringOr("content_type", ""))
	if err != nil {
		return channelTrackRequest{}, err
	}
	if !catalog.SupportsType(content, rt) {
		return channelTrackRequest{}, fmt.Errorf("%w: only DPS ping type is supported for golems", record.ErrInvalidArgument)
	}
	return channelTrackRequest{Type: rt, Content: content, LowmanOnly: opts.flag("lowman_only")}, nil
}

// handleChannelTrack handles /channeltrackboss and /channeluntrackboss
func (b *Bot) handleChannelTrack(s *discordgo.Session, i *discordgo.InteractionCreate, track bool) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "This command can only be used in a server.")
		return
	}
	if !isAdmin(i) {
		respondEphemeral(s, i, "You must be a server administrator to use this command.")
		return
	}

	req, err := parseChannelTrack(commandOptions(i))
	if err != nil {
		respondWithMessage(s, i, userMessage(err)+" Try again.")
		return
	}
	bossIDs, err := b.catalog.BossIDs(req.Content)
	if err != nil {
		respondWithMessage(s, i, userMessage(err))
		return
	}

	deferResponse(s, i, 0)

	ctx, cancel := b.commandContext()
	defer cancel()

	if track {
		err = b.repo.SubscribeMany(ctx, i.ChannelID, bossIDs, req.Type, req.LowmanOnly)
	} else {
		err = b.repo.UnsubscribeMany(ctx, i.ChannelID, bossIDs, req.Type, req.LowmanOnly)
	}
	if err != nil {
		slog.Error("Failed to update channel subscriptions", "channel", i.ChannelID, "content", req.Content, "type", req.Type, "error", err)
		b.editResponse(s, i, userMessage(err))
		return
	}

	slog.Info("Channel subscriptions updated", "channel", i.ChannelID, "guild", i.GuildID, "content", req.Content, "type", req.Type, "lowman", req.LowmanOnly, "track", track)
	if track {
		b.editResponse(s, i, "Added bosses to track list. Will post in this channel when the next patch record is posted")
		return
	}
	b.editResponse(s, i, "Removed bosses from track list.")
}

// handleNewBossID handles /addnewbossid and /removenewbossid
func (b *Bot) handleNewBossID(s *discordgo.Session, i *discordgo.InteractionCreate, add bool) {
	if !b.isOwner(i) {
		respondEphemeral(s, i, "Only the bot owner can use this command.")
		return
	}

	opts := commandOptions(i)
	category := catalog.Content(opts.stringOr("boss_type", ""))
	newBossID := strings.TrimSpace(opts.stringOr("new_boss_id", ""))

	sibling, err := catalog.ExampleBoss(category)
	if err != nil || newBossID == "" {
		respondEphemeral(s, i, "Error. Unknown boss type or empty boss id.")
		return
	}

	ctx, cancel := b.commandContext()
	defer cancel()

	var n int
	if add {
		n, err = b.repo.CopySubscriptions(ctx, sibling, newBossID)
	} else {
		n, err = b.repo.RemoveSiblingSubscriptions(ctx, sibling, newBossID)
	}
	if err != nil {
		slog.Error("Failed to update new boss id", "boss", newBossID, "category", category, "error", err)
		respondEphemeral(s, i, fmt.Sprintf("Failed after %d channels: %v", n, err))
		return
	}

	if add {
		slog.Info("Added new boss id", "boss", newBossID, "category", category, "subscriptions", n)
		respondWithMessage(s, i, fmt.Sprintf("Success! Added boss %d times", n))
		return
	}
	slog.Info("Removed boss id", "boss", newBossID, "category", category, "subscriptions", n)
	respondWithMessage(s, i, fmt.Sprintf("Success! Removed boss %d times", n))
}

// handleDebugChannels logs the guild of every subscribed channel
func (b *Bot) handleDebugChannels(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isOwner(i) {
		respondEphemeral(s, i, "Only the bot owner can use this command.")
		return
	}

	ctx, cancel := b.commandContext()
	defer cancel()

	summaries, err := b.repo.SubscribedChannels(ctx)
	if err != nil {
		slog.Error("Failed to list subscribed channels", "error", err)
		respondEphemeral(s, i, userMessage(err))
		return
	}

	var unreachable int
	for _, sum := range summaries {
		ch, err := s.State.Channel(sum.ChannelID)
		if err != nil {
			unreachable++
			slog.Warn("Subscribed channel not in state", "channel", sum.ChannelID, "types", sum.Types, "error", err)
			continue
		}
		guild, err := s.State.Guild(ch.GuildID)
		if err != nil {
			unreachable++
			slog.Warn("Guild info did not work", "channel", sum.ChannelID, "guild", ch.GuildID, "error", err)
			continue
		}
		slog.Info("Subscribed channel", "channel", sum.ChannelID, "name", ch.Name, "guild", guild.Name,
			"unavailable", guild.Unavailable, "types", sum.Types, "bosses", sum.Bosses)
	}

	respondEphemeral(s, i, fmt.Sprintf("Results sent to log. %d channels, %d unreachable.", len(summaries), unreachable))
}

// handlePruneChannel handles the /prunechannel command
func (b *Bot) handlePruneChannel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isOwner(i) {
		respondEphemeral(s, i, "Only the bot owner can use this command.")
		return
	}

	channelID := strings.TrimSpace(commandOptions(i).stringOr("channel_id", ""))
	ctx, cancel := b.commandContext()
	defer cancel()

	n, err := b.repo.PruneChannel(ctx, channelID)
	if err != nil {
		slog.Error("Failed to prune channel", "channel", channelID, "error", err)
		respondEphemeral(s, i, userMessage(err))
		return
	}
	slog.Info("Removing channel", "channel", channelID, "subscriptions", n)
	respondEphemeral(s, i, fmt.Sprintf("Success! Removed %d subscriptions", n))
}
