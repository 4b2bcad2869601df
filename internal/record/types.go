package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Type identifies a patch-record leaderboard
type Type uint8

const (
	TypeTime Type = iota + 1
	TypeDPS
	TypeSupportDPS
)

// Types lists every record type in display order
var Types = []Type{TypeTime, TypeDPS, TypeSupportDPS}

// String returns the wire/storage name of the record type
func (t Type) String() string {
	switch t {
	case TypeTime:
		return "time"
	case TypeDPS:
		return "dps"
	case TypeSupportDPS:
		return "supportdps"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Title returns the human-readable leaderboard name
func (t Type) Title() string {
	switch t {
	case TypeTime:
		return "Time"
	case TypeDPS:
		return "DPS"
	case TypeSupportDPS:
		return "Support DPS"
	default:
		return t.String()
	}
}

// Valid reports whether t is one of the known record types
func (t Type) Valid() bool {
	switch t {
	case TypeTime, TypeDPS, TypeSupportDPS:
		return true
	default:
		return false
	}
}

// ParseType converts a wire name into a Type
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "time":
		return TypeTime, nil
	case "dps":
		return TypeDPS, nil
	case "supportdps":
		return TypeSupportDPS, nil
	default:
		return 0, fmt.Errorf("%w: unknown record type %q", ErrInvalidArgument, s)
	}
}

// UnmarshalJSON accepts the wire name of a record type
func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: record type must be a string", ErrInvalidArgument)
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Flag is a boolean that also accepts 0/1 and "true"/"false" on the wire
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	switch s := strings.Trim(strings.TrimSpace(string(b)), `"`); strings.ToLower(s) {
	case "true", "1":
		*f = true
	case "false", "0", "", "null":
		*f = false
	default:
		return fmt.Errorf("invalid boolean %s", string(b))
	}
	return nil
}

// Text is a string that also accepts JSON numbers
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*t = Text(n.String())
	return nil
}

// Header carries the fields common to every patch-record event
type Header struct {
	Type          Type     `json:"type"`
	BossID        string   `json:"bossID"`
	BossName      string   `json:"bossName"`
	EraID         string   `json:"eraID"`
	Link          string   `json:"link"`
	Group         []string `json:"group"`
	GroupIcons    []string `json:"groupIcons"`
	IsLegendaryCM Flag     `json:"isLegendaryCM"`

	// Debug routes the notification to the debug channel only.
	Debug Flag `json:"debug"`
}

// TimeRecord is a new fastest (or best lowman) clear
type TimeRecord struct {
	Header
	DurationMS           int64    `json:"duration"`
	PreviousDurationMS   int64    `json:"previousDuration"`
	IsLowman             Flag     `json:"isLowman"`
	PreviousPlayerAmount int      `json:"previousPlayerAmount"`
	Characters           []string `json:"players_chars"`
	Accounts             []string `json:"players"`
	Professions          []string `json:"players_professions"`
}

// DPSRecord is a new DPS or support DPS record on a boss
type DPSRecord struct {
	Header
	Character   string  `json:"character"`
	Profession  *string `json:"profession"`
	Account     string  `json:"account"`
	DPS         float64 `json:"dps"`
	PreviousDPS float64 `json:"previousDps"`
}

// ReportedLog is a log flagged by a user on the stats site
type ReportedLog struct {
	Link     string `json:"link"`
	Reason   string `json:"reason"`
	BossID   string `json:"bossID"`
	BossName string `json:"bossName"`
	Duration Text   `json:"duration"`
}

// InternalMessage is relayed verbatim to the internal channel
type InternalMessage struct {
	Message string `json:"message"`
}

// Event is a decoded patch-record payload: either *TimeRecord or *DPSRecord
type Event interface {
	Head() *Header
}

func (h *Header) Head() *Header { return h }

// Lowman reports whether e is a lowman clear
func Lowman(e Event) bool {
	if tr, ok := e.(*TimeRecord); ok {
		return bool(tr.IsLowman)
	}
	return false
}

// DecodeEvent parses a patch-record body, dispatching on its "type" field
func DecodeEvent(body []byte) (Event, error) {
	var probe struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("%w: malformed json: %v", ErrInvalidArgument, err)
	}
	if probe.Type == nil {
		return nil, fmt.Errorf("%w: missing type discriminator", ErrInvalidArgument)
	}
	t, err := ParseType(*probe.Type)
	if err != nil {
		return nil, err
	}

	var ev Event
	switch t {
	case TypeTime:
		ev = &TimeRecord{}
	case TypeDPS, TypeSupportDPS:
		ev = &DPSRecord{}
	}
	if err := json.Unmarshal(body, ev); err != nil {
		return nil, fmt.Errorf("%w: decode %s record: %v", ErrInvalidArgument, t, err)
	}
	if ev.Head().BossID == "" {
		return nil, fmt.Errorf("%w: missing bossID", ErrInvalidArgument)
	}
	return ev, nil
}

// FormatStat renders a stat value without a trailing ".0"
func FormatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
