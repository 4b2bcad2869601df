package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/catalog"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/pb"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/storage"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/wingman"
)

var (
	adminPermission int64 = discordgo.PermissionAdministrator
	dmAllowed             = false
)

func contentChoices(contents []catalog.Content) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(contents))
	for i, c := range contents {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: string(c), Value: string(c)}
	}
	return choices
}

func typeChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(record.Types))
	for i, t := range record.Types {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: t.String(), Value: t.String()}
	}
	return choices
}

// userContents excludes "all", which is only offered to channels
func userContents() []catalog.Content {
	out := make([]catalog.Content, 0, len(catalog.TrackableContents))
	for _, c := range catalog.TrackableContents {
		if c != catalog.ContentAll {
			out = append(out, c)
		}
	}
	return out
}

// Slash command definitions
func (b *Bot) getCommandDefinitions() []*discordgo.ApplicationCommand {
	channelTrackOptions := []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "ping_type",
			Description: "Which patch records to post",
			Required:    true,
			Choices:     typeChoices(),
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "content_type",
			Description: "The content you want to track",
			Required:    true,
			Choices:     contentChoices(catalog.TrackableContents),
		},
		{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "lowman_only",
			Description: "Only post lowman clears",
		},
	}
	bossIDOptions := []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "boss_type",
			Description: "Content type of the new boss",
			Required:    true,
			Choices:     contentChoices(catalog.Categories),
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "new_boss_id",
			Description: "Boss id, negative for a CM",
			Required:    true,
		},
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "adduser",
			Description: "Add a user to be tracked",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "api_key",
					Description: "API Key used in Wingman",
					Required:    true,
				},
			},
		},
		{
			Name:        "track",
			Description: "Start tracking bosses",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "content_type",
					Description: "The content you want to track",
					Required:    true,
					Choices:     contentChoices(userContents()),
				},
			},
		},
		{
			Name:        "untrack",
			Description: "Stop tracking bosses",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "content_type",
					Description: "The content you no longer want to track",
					Required:    true,
					Choices:     contentChoices(userContents()),
				},
			},
		},
		{
			Name:        "check",
			Description: "Manually check for new PBs",
		},
		{
			Name:        "flex",
			Description: "Flex on your friends by sharing your best logs.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "leaderboard",
					Description: "Which type of leaderboard you would like to show.",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "time", Value: "time"},
						{Name: "dps", Value: "dps"},
						{Name: "support", Value: "support"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "patch_id",
					Description: "Patch ID, generally 'YY-MM'. Defaults to the latest.",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "content",
					Description: "Bosses to show, normal and CM. Defaults to all.",
					Choices:     contentChoices(catalog.FlexContents),
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "spec",
					Description: "Specialization to show. Defaults to overall. Not supported for time.",
				},
			},
		},
		{
			Name:        "about",
			Description: "Links the about info",
		},
		{
			Name:        "patch",
			Description: "Show the current patch",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "refresh",
					Description: "Re-fetch the patch list (bot owner only)",
				},
			},
		},
		{
			Name:                     "channeltrackboss",
			Description:              "In this channel, post a message when there is a new patch record",
			Options:                  channelTrackOptions,
			DefaultMemberPermissions: &adminPermission,
			DMPermission:             &dmAllowed,
		},
		{
			Name:                     "channeluntrackboss",
			Description:              "Stop posting patch records in this channel",
			Options:                  channelTrackOptions,
			DefaultMemberPermissions: &adminPermission,
			DMPermission:             &dmAllowed,
		},
		{
			Name:                     "addnewbossid",
			Description:              "Add tracking for when game adds new boss",
			Options:                  bossIDOptions,
			DefaultMemberPermissions: &adminPermission,
		},
		{
			Name:                     "removenewbossid",
			Description:              "Remove a boss id from channels tracking its content type",
			Options:                  bossIDOptions,
			DefaultMemberPermissions: &adminPermission,
		},
		{
			Name:                     "debugchannels",
			Description:              "What the heck is going on",
			DefaultMemberPermissions: &adminPermission,
		},
		{
			Name:        "prunechannel",
			Description: "Remove channel_id from database",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "channel_id",
					Description: "Channel to remove",
					Required:    true,
				},
			},
			DefaultMemberPermissions: &adminPermission,
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	slog.Info("Registering slash commands")

	appID := b.config.DiscordApplicationID
	if appID == "" {
		appID = b.session.State.User.ID
	}

	commandDefinitions := b.getCommandDefinitions()
	registeredCommands := make([]*discordgo.ApplicationCommand, 0, len(commandDefinitions))

	for _, cmd := range commandDefinitions {
		registered, err := b.session.ApplicationCommandCreate(
			appID,
			"", // Empty string = global command
			cmd,
		)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
		registeredCommands = append(registeredCommands, registered)
		slog.Debug("Registered command", "name", cmd.Name)
	}

	b.commands = registeredCommands
	slog.Info("Slash commands registered", "count", len(registeredCommands))
	return nil
}

// userMessage turns a command error into the text shown to the invoking user
func userMessage(err error) string {
	switch {
	case errors.Is(err, pb.ErrNoAPIKey):
		return "Error. You need to add your api key first. Do /adduser"
	case errors.Is(err, pb.ErrNoTrackedBosses):
		return "Error. You don't have any tracked bosses. Do /track"
	case errors.Is(err, storage.ErrNotFound):
		return "You are not a registered user. Do /adduser"
	case errors.Is(err, record.ErrInvalidCredential):
		return "Invalid API key. Make sure it is the same API key Wingman uses."
	case wingman.IsUpstream(err):
		return "GW2Wingman could not be reached. Try again later."
	case errors.Is(err, pb.ErrNoLogs):
		return "Did not find any logs for your settings."
	case errors.Is(err, record.ErrInvalidArgument):
		msg := err.Error()
		prefix := record.ErrInvalidArgument.Error() + ": "
		if idx := strings.Index(msg, prefix); idx >= 0 {
			msg = msg[idx+len(prefix):]
		}
		return "Error. " + msg
	default:
		return "Something went wrong. Please try again."
	}
}

// Helper functions

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func commandOptions(i *discordgo.InteractionCreate) options {
	opts := make(options)
	for _, o := range i.ApplicationCommandData().Options {
		opts[o.Name] = o
	}
	return opts
}

func (o options) stringOr(name, def string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return def
}

func (o options) flag(name string) bool {
	if opt, ok := o[name]; ok {
		return opt.BoolValue()
	}
	return false
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func (b *Bot) isOwner(i *discordgo.InteractionCreate) bool {
	return b.ownerID != "" && interactionUserID(i) == b.ownerID
}

func respondWithMessage(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	respond(s, i, content, 0)
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	respond(s, i, content, discordgo.MessageFlagsEphemeral)
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, flags discordgo.MessageFlags) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
	if err != nil {
		slog.Error("Failed to respond to interaction", "command", i.ApplicationCommandData().Name, "error", err)
	}
}

func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate, flags discordgo.MessageFlags) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
	if err != nil {
		slog.Error("Failed to defer interaction", "command", i.ApplicationCommandData().Name, "error", err)
	}
}

func (b *Bot) editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	}); err != nil {
		slog.Error("Failed to edit interaction response", "error", err)
	}
}

func (b *Bot) editEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &embeds,
	}); err != nil {
		slog.Error("Failed to edit interaction response", "error", err)
	}
}

func (b *Bot) followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
	}); err != nil {
		slog.Error("Failed to send followup", "error", err)
	}
}
