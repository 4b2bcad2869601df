package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/era"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/obs"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
)

// EraResolver classifies the era of an inbound record
type EraResolver interface {
	Resolve(ctx context.Context, eraID string) era.Kind
}

// Channels are the fixed destinations of the auxiliary relays
type Channels struct {
	ReportedLogs string
	Internal     string
}

// Pipeline turns inbound webhook payloads into channel deliveries
type Pipeline struct {
	eras       EraResolver
	formatter  *Formatter
	dispatcher *Dispatcher
	channels   Channels
}

// NewPipeline wires the era resolver, formatter and dispatcher together
func NewPipeline(eras EraResolver, formatter *Formatter, dispatcher *Dispatcher, channels Channels) *Pipeline {
	return &Pipeline{eras: eras, formatter: formatter, dispatcher: dispatcher, channels: channels}
}

// PatchRecord validates, renders and dispatches one patch record. Records for
// superseded eras return record.ErrStaleEra and suppressed records
// ErrSuppressed; both are drops, not failures.
func (p *Pipeline) PatchRecord(ctx context.Context, ev record.Event) (Report, error) {
	h := ev.Head()

	kind := p.eras.Resolve(ctx, h.EraID)
	if kind == era.Ignore {
		obs.Dropped("stale_era")
		return Report{}, fmt.Errorf("%w: era %s", record.ErrStaleEra, h.EraID)
	}

	embed, err := p.formatter.Format(ev, kind)
	if err != nil {
		if errors.Is(err, ErrSuppressed) {
			obs.Dropped("suppressed")
			slog.Debug("Suppressed record", "boss", h.BossID, "reason", err)
		}
		return Report{}, err
	}

	report, err := p.dispatcher.Dispatch(ctx, Target{
		BossID: h.BossID,
		Type:   h.Type,
		Lowman: record.Lowman(ev),
		Debug:  bool(h.Debug),
	}, embed)
	if err != nil {
		return Report{}, err
	}
	if len(report.Channels) > 0 {
		slog.Info("Dispatched patch record", "boss", h.BossID, "type", h.Type, "era", h.EraID, "channels", len(report.Channels))
	}
	return report, nil
}

// ReportedLog relays a reported log to the moderation channel
func (p *Pipeline) ReportedLog(ctx context.Context, r record.ReportedLog) error {
	if r.Link == "" {
		return fmt.Errorf("%w: reported log without link", record.ErrInvalidArgument)
	}
	if p.channels.ReportedLogs == "" {
		return fmt.Errorf("%w: no reported-log channel configured", record.ErrInvalidArgument)
	}
	p.dispatcher.SendEmbed(p.channels.ReportedLogs, "reportlog", p.formatter.FormatReportedLog(r))
	slog.Debug("Log reported", "link", r.Link, "reason", r.Reason)
	return nil
}

// InternalMessage echoes a message to the internal channel
func (p *Pipeline) InternalMessage(ctx context.Context, m record.InternalMessage) error {
	if strings.TrimSpace(m.Message) == "" {
		return fmt.Errorf("%w: empty internal message", record.ErrInvalidArgument)
	}
	if p.channels.Internal == "" {
		return fmt.Errorf("%w: no internal channel configured", record.ErrInvalidArgument)
	}
	p.dispatcher.SendText(p.channels.Internal, "internal", m.Message)
	slog.Debug("Internal message", "message", m.Message)
	return nil
}
