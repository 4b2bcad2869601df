package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/catalog"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/era"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/pb"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
)

const (
	aboutURL     = "https://github.com/SuperClicheUsername/GW2WingmanPBBot"
	aboutMessage = "Discord bot to help track personal bests and patch records from GW2Wingman. Contact Discord name: supercliche."

	commandTimeout = 30 * time.Second
)

func (b *Bot) commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(b.ctx, commandTimeout)
}

// handleAddUser handles the /adduser command
func (b *Bot) handleAddUser(s *discordgo.Session, i *discordgo.InteractionCreate) {
	apiKey := commandOptions(i).stringOr("api_key", "")
	userID := interactionUserID(i)

	// Validation calls the stats site, so respond later
	deferResponse(s, i, discordgo.MessageFlagsEphemeral)

	ctx, cancel := b.commandContext()
	defer cancel()

	if err := b.client.ValidateAPIKey(ctx, apiKey); err != nil {
		slog.Info("Rejected api key", "user", userID, "error", err)
		b.editResponse(s, i, userMessage(err))
		return
	}
	if err := b.repo.SetUserKey(ctx, userID, apiKey); err != nil {
		slog.Error("Failed to save api key", "user", userID, "error", err)
		b.editResponse(s, i, userMessage(err))
		return
	}

	b.editResponse(s, i, "Saving API Key.")
}

// handleTrack handles /track and /untrack
func (b *Bot) handleTrack(s *discordgo.Session, i *discordgo.InteractionCreate, track bool) {
	userID := interactionUserID(i)
	content, err := catalog.ParseContent(commandOptions(i).stringOr("content_type", ""))
	if err != nil {
		respondEphemeral(s, i, userMessage(err))
		return
	}
	bossIDs, err := b.catalog.BossIDs(content)
	if err != nil {
		respondEphemeral(s, i, userMessage(err))
		return
	}

	ctx, cancel := b.commandContext()
	defer cancel()

	if track {
		err = b.repo.TrackBosses(ctx, userID, bossIDs)
	} else {
		err = b.repo.UntrackBosses(ctx, userID, bossIDs)
	}
	if err != nil {
		slog.Error("Failed to update tracked bosses", "user", userID, "content", content, "error", err)
		respondEphemeral(s, i, userMessage(err))
		return
	}

	if track {
		respondEphemeral(s, i, "Added bosses to track list. Next /check will not give PBs to reduce spam.")
		return
	}
	respondEphemeral(s, i, "Removed bosses from track list.")
}

// handleCheck handles the /check command
func (b *Bot) handleCheck(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	deferResponse(s, i, 0)

	ctx, cancel := b.commandContext()
	defer cancel()

	res, err := b.checker.Check(ctx, userID)
	if err != nil {
		slog.Warn("PB check failed", "user", userID, "error", err)
		b.editResponse(s, i, userMessage(err))
		return
	}

	switch {
	case res.Primed:
		b.editResponse(s, i, "You haven't checked logs yet this patch. Not linking PBs to reduce spam. Next time /check will link all PB logs")
	case len(res.Messages) == 0:
		b.editResponse(s, i, "No new PBs")
	default:
		b.editResponse(s, i, res.Messages[0])
		for _, msg := range res.Messages[1:] {
			b.followup(s, i, msg)
		}
	}
	slog.Info("PB check", "user", userID, "primed", res.Primed, "new", len(res.Messages))
}

func parseLeaderboard(s string) (record.Type, error) {
	if s == "support" {
		return record.TypeSupportDPS, nil
	}
	return record.ParseType(s)
}

// handleFlex handles the /flex command
func (b *Bot) handleFlex(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := commandOptions(i)
	userID := interactionUserID(i)

	leaderboard, err := parseLeaderboard(opts.stringOr("leaderboard", ""))
	if err != nil {
		respondEphemeral(s, i, userMessage(err))
		return
	}
	req := pb.FlexRequest{
		Leaderboard: leaderboard,
		EraID:       opts.stringOr("patch_id", pb.LatestEra),
		Content:     catalog.Content(opts.stringOr("content", string(catalog.ContentAll))),
		Spec:        opts.stringOr("spec", pb.OverallSpec),
	}

	deferResponse(s, i, 0)

	ctx, cancel := b.commandContext()
	defer cancel()

	board, err := b.checker.Flex(ctx, userID, b.catalog, req)
	if err != nil {
		slog.Info("Flex failed", "user", userID, "error", err)
		b.editResponse(s, i, userMessage(err))
		return
	}
	b.editEmbed(s, i, flexEmbed(board, req))
}

// flexEmbed lays the leaderboard out as rows of boss and stat columns
func flexEmbed(board *pb.Leaderboard, req pb.FlexRequest) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s's best %s logs", board.Account, req.Leaderboard.Title()),
		Description: fmt.Sprintf("For the %s patch in %s on %s", board.EraID, req.Content, req.Spec),
	}
	for idx, bosses := range board.Bosses {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Boss", Value: bosses, Inline: true},
			&discordgo.MessageEmbedField{Name: board.Title, Value: board.Stats[idx], Inline: true},
			&discordgo.MessageEmbedField{Name: "\u200b", Value: "\u200b", Inline: true},
		)
	}
	return embed
}

// handleAbout handles the /about command
func (b *Bot) handleAbout(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: aboutMessage,
			Embeds:  []*discordgo.MessageEmbed{{Title: "View github", URL: aboutURL}},
		},
	})
	if err != nil {
		slog.Error("Failed to respond to about", "error", err)
	}
}

// handlePatch handles the /patch command
func (b *Bot) handlePatch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if commandOptions(i).flag("refresh") {
		if !b.isOwner(i) {
			respondEphemeral(s, i, "Only the bot owner can refresh the patch list.")
			return
		}
		ctx, cancel := b.commandContext()
		defer cancel()
		if err := b.eras.Refresh(ctx); err != nil {
			slog.Error("Manual patch refresh failed", "error", err)
			respondEphemeral(s, i, userMessage(err))
			return
		}
	}
	respondWithMessage(s, i, patchSummary(b.eras))
}

func patchSummary(eras *era.Resolver) string {
	current := eras.Current()
	msg := fmt.Sprintf("Current patch: %s", current.ID)
	if start := eras.CurrentStart(); !start.IsZero() {
		msg += fmt.Sprintf(", live since <t:%d:f>", start.Unix())
	}
	if ids := eras.IDs(); len(ids) > 1 {
		msg += "\nPrevious patch: " + ids[1]
	}
	if at := eras.RefreshedAt(); !at.IsZero() {
		msg += fmt.Sprintf("\nPatch list refreshed <t:%d:R>", at.Unix())
	}
	return msg
}
