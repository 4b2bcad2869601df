package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/catalog"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/config"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/era"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/notify"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/pb"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/poller"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/storage"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/wingman"
)

// Guild create and emoji update events carry the emojis used for profession icons
const intents = discordgo.IntentsGuilds | discordgo.IntentsGuildEmojis

// Bot represents the Discord bot instance
type Bot struct {
	config     *config.Config
	session    *discordgo.Session
	repo       *storage.Repository
	client     *wingman.Client
	catalog    *catalog.Catalog
	eras       *era.Resolver
	checker    *pb.Checker
	dispatcher *notify.Dispatcher
	pipeline   *notify.Pipeline
	poller     *poller.Poller
	commands   []*discordgo.ApplicationCommand
	ownerID    string

	ctx context.Context
}

// New creates a new Bot instance. It loads the boss catalog and patch list,
// so the gw2wingman API must be reachable.
func New(ctx context.Context, cfg *config.Config, repo *storage.Repository) (*Bot, error) {
	// Create Discord session
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = intents

	client := wingman.NewClient(cfg.WingmanBaseURL, cfg.WingmanTimeout, wingman.WithRate(cfg.WingmanRatePerSec))

	cat, err := catalog.Load(ctx, client.BaseURL(), client)
	if err != nil {
		return nil, fmt.Errorf("failed to load boss catalog: %w", err)
	}
	slog.Info("Loaded boss catalog", "bosses", cat.Len(), "professions", len(cat.Professions()))

	eras := era.NewResolver(client)
	if err := eras.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to load patch list: %w", err)
	}

	b := &Bot{
		config:  cfg,
		session: session,
		repo:    repo,
		client:  client,
		catalog: cat,
		eras:    eras,
		ownerID: cfg.BotOwnerID,
		ctx:     ctx,
	}

	formatter := notify.NewFormatter(cat, client.BaseURL(), notify.EmojiFunc(b.emoji))
	b.dispatcher = notify.NewDispatcher(repo, session, cfg.DebugChannelID)
	b.pipeline = notify.NewPipeline(eras, formatter, b.dispatcher, notify.Channels{
		ReportedLogs: cfg.ReportedLogChannelID,
		Internal:     cfg.InternalChannelID,
	})
	b.checker = pb.NewChecker(repo, client, eras, cat, client.BaseURL())
	b.poller = poller.New(cfg.RefreshSchedule, cfg.WingmanTimeout*3, map[string]poller.Refresher{
		"catalog": cat,
		"patches": eras,
	})

	// Register command handlers
	b.registerHandlers()

	return b, nil
}

// Pipeline returns the notification pipeline fed by the webhook server
func (b *Bot) Pipeline() *notify.Pipeline {
	return b.pipeline
}

// Start opens the Discord connection and starts background tasks
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx

	// Open Discord connection
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	slog.Info("Connected to Discord", "user", b.session.State.User.Username)

	if b.ownerID == "" {
		app, err := b.session.Application("@me")
		if err != nil {
			slog.Warn("Failed to look up bot owner, owner commands disabled", "error", err)
		} else if app.Owner != nil {
			b.ownerID = app.Owner.ID
		}
	}

	// Register slash commands
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	// Start the catalog refresher
	if err := b.poller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start poller: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the bot. The repository is owned by the caller.
func (b *Bot) Stop() error {
	// Stop the poller
	if b.poller != nil {
		b.poller.Stop()
	}

	// Let in-flight deliveries finish before the session goes away
	if b.dispatcher != nil {
		b.dispatcher.Close()
	}

	// Close Discord session
	if b.session != nil {
		return b.session.Close()
	}

	return nil
}

// registerHandlers sets up Discord event handlers
func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleInteraction)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Bot is ready", "guilds", len(r.Guilds))
	})
}

// emoji returns the chat markup of a guild emoji named after a profession
func (b *Bot) emoji(name string) string {
	st := b.session.State
	st.RLock()
	defer st.RUnlock()
	for _, g := range st.Guilds {
		for _, e := range g.Emojis {
			if e.Name == name {
				return e.MessageFormat()
			}
		}
	}
	return ""
}

// handleInteraction processes slash command interactions
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	slog.Debug("Received command", "command", data.Name, "guild", i.GuildID, "user", interactionUserID(i))

	switch data.Name {
	case "adduser":
		b.handleAddUser(s, i)
	case "track":
		b.handleTrack(s, i, true)
	case "untrack":
		b.handleTrack(s, i, false)
	case "check":
		b.handleCheck(s, i)
	case "flex":
		b.handleFlex(s, i)
	case "about":
		b.handleAbout(s, i)
	case "patch":
		b.handlePatch(s, i)
	case "channeltrackboss":
		b.handleChannelTrack(s, i, true)
	case "channeluntrackboss":
		b.handleChannelTrack(s, i, false)
	case "addnewbossid":
		b.handleNewBossID(s, i, true)
	case "removenewbossid":
		b.handleNewBossID(s, i, false)
	case "debugchannels":
		b.handleDebugChannels(s, i)
	case "prunechannel":
		b.handlePruneChannel(s, i)
	default:
		slog.Warn("Unknown command", "command", data.Name)
	}
}
