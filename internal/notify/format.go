package notify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/era"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/wingman"
)

// ErrSuppressed marks a record filtered out as anonymized or bugged
var ErrSuppressed = errors.New("record suppressed")

// placeholderAccount is the account name the site reports for summoned allies
const placeholderAccount = "Conjured Sword"

// Catalog resolves boss names and icons
type Catalog interface {
	DisplayName(id string, legendary bool, fallback string) string
	IconURL(id string) string
}

// EmojiResolver maps a profession name to a Discord emoji, or "" if unknown
type EmojiResolver interface {
	Emoji(name string) string
}

// EmojiFunc adapts a function to EmojiResolver
type EmojiFunc func(name string) string

func (f EmojiFunc) Emoji(name string) string { return f(name) }

// Formatter renders patch-record events as Discord embeds
type Formatter struct {
	catalog     Catalog
	emojis      EmojiResolver
	baseURL     string
	defaultIcon string
}

// NewFormatter creates a formatter. emojis may be nil.
func NewFormatter(catalog Catalog, baseURL string, emojis EmojiResolver) *Formatter {
	if emojis == nil {
		emojis = EmojiFunc(func(string) string { return "" })
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &Formatter{
		catalog:     catalog,
		emojis:      emojis,
		baseURL:     baseURL,
		defaultIcon: baseURL + "/static/groupIcons/defGroup.png",
	}
}

// LogURL returns the public URL of a log link
func (f *Formatter) LogURL(link string) string {
	return f.baseURL + "/log/" + link
}

// FormatDuration renders milliseconds as mm:ss.mmm
func FormatDuration(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("04:05.000")
}

// Format renders a patch-record event. DPS records from placeholder accounts
// or without a profession return ErrSuppressed.
func (f *Formatter) Format(ev record.Event, kind era.Kind) (*discordgo.MessageEmbed, error) {
	switch e := ev.(type) {
	case *record.TimeRecord:
		return f.formatTime(e, kind), nil
	case *record.DPSRecord:
		return f.formatDPS(e, kind)
	default:
		return nil, fmt.Errorf("%w: unsupported event %T", record.ErrInvalidArgument, ev)
	}
}

func (f *Formatter) bossName(h *record.Header) string {
	return f.catalog.DisplayName(h.BossID, bool(h.IsLegendaryCM), h.BossName)
}

// iconURL prefers the group icon unless it is the site's placeholder
func (f *Formatter) iconURL(h *record.Header) string {
	if len(h.GroupIcons) > 0 && h.GroupIcons[0] != "" && h.GroupIcons[0] != f.defaultIcon && h.GroupIcons[0] != wingman.DefaultGroupIcon {
		return h.GroupIcons[0]
	}
	return f.catalog.IconURL(h.BossID)
}

func (f *Formatter) formatTime(e *record.TimeRecord, kind era.Kind) *discordgo.MessageEmbed {
	title := "New fastest log on " + f.bossName(&e.Header)
	fields := []*discordgo.MessageEmbedField{
		{Name: "Time", Value: FormatDuration(e.DurationMS), Inline: true},
		{Name: "Previous Time", Value: FormatDuration(e.PreviousDurationMS), Inline: true},
	}
	if e.IsLowman {
		title = "New best lowman log on " + f.bossName(&e.Header)
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Previous Player Count", Value: strconv.Itoa(e.PreviousPlayerAmount), Inline: true,
		})
	}
	fields = append(fields,
		&discordgo.MessageEmbedField{Name: "Era", Value: kind.Label(), Inline: true},
		&discordgo.MessageEmbedField{Name: "Players", Value: f.roster(e), Inline: false},
	)
	return f.embed(title, &e.Header, fields)
}

// roster zips professions, characters and accounts; the shortest list wins
func (f *Formatter) roster(e *record.TimeRecord) string {
	n := min(len(e.Professions), len(e.Characters), len(e.Accounts))
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		lines = append(lines, f.playerLine(e.Professions[i], e.Characters[i], e.Accounts[i]))
	}
	return nonEmpty(strings.Join(lines, "\n"))
}

func (f *Formatter) playerLine(profession, character, account string) string {
	line := character + "/" + account
	if emoji := f.emojis.Emoji(profession); emoji != "" {
		line = emoji + " " + line
	}
	return line
}

func (f *Formatter) formatDPS(e *record.DPSRecord, kind era.Kind) (*discordgo.MessageEmbed, error) {
	if e.Account == placeholderAccount || e.Profession == nil || *e.Profession == "" {
		return nil, fmt.Errorf("%w: account %q profession unset=%t", ErrSuppressed, e.Account, e.Profession == nil)
	}

	rt := e.Type
	if rt != record.TypeSupportDPS {
		rt = record.TypeDPS
	}
	stat := fmt.Sprintf("%s (+%s)", record.FormatStat(e.DPS), record.FormatStat(e.DPS-e.PreviousDPS))
	fields := []*discordgo.MessageEmbedField{
		{Name: rt.Title(), Value: stat, Inline: true},
		{Name: "Era", Value: kind.Label(), Inline: true},
		{Name: "Player", Value: f.playerLine(*e.Profession, e.Character, e.Account), Inline: false},
	}
	title := fmt.Sprintf("New %s record log on %s", rt.Title(), f.bossName(&e.Header))
	return f.embed(title, &e.Header, fields), nil
}

func (f *Formatter) embed(title string, h *record.Header, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: title,
		URL:   f.LogURL(h.Link),
	}
	if len(h.Group) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Group", Value: strings.Join(h.Group, ", "), Inline: false,
		})
	}
	if icon := f.iconURL(h); icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: icon}
	}
	embed.Fields = append(embed.Fields, fields...)
	return embed
}

// FormatReportedLog renders a log reported on the stats site
func (f *Formatter) FormatReportedLog(r record.ReportedLog) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Log reported on %s, reason: %s", r.BossName, r.Reason),
		URL:   f.LogURL(r.Link),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Time", Value: nonEmpty(string(r.Duration)), Inline: true},
			{Name: "Link", Value: nonEmpty(r.Link), Inline: true},
		},
	}
	if icon := f.catalog.IconURL(r.BossID); icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: icon}
	}
	return embed
}

// Discord rejects empty field values
func nonEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "\u200b"
	}
	return s
}
