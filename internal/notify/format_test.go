package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/era"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/record"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "02:05.000", FormatDuration(125000))
	assert.Equal(t, "01:05.432", FormatDuration(65432))
	assert.Equal(t, "00:00.000", FormatDuration(0))
}

func TestFormatTimeRecord(t *testing.T) {
	f := newTestFormatter(EmojiFunc(func(name string) string {
		if name == "Firebrand" {
			return "<:Firebrand:1>"
		}
		return ""
	}))

	ev := &record.TimeRecord{
		Header: record.Header{
			Type:       record.TypeTime,
			BossID:     "19450",
			EraID:      "24-06",
			Link:       "20240701-101500_dhuum",
			Group:      []string{"Snow Crows"},
			GroupIcons: []string{"https://cdn.test/sc.png"},
		},
		DurationMS:         125000,
		PreviousDurationMS: 130500,
		Characters:         []string{"Alpha", "Beta", "Gamma"},
		Accounts:           []string{"a.1", "b.2"},
		Professions:        []string{"Firebrand", "Guardian", "Guardian"},
	}

	embed, err := f.Format(ev, era.Current)
	require.NoError(t, err)
	assert.Equal(t, "New fastest log on Dhuum", embed.Title)
	assert.Equal(t, testBaseURL+"/log/20240701-101500_dhuum", embed.URL)
	require.NotNil(t, embed.Thumbnail)
	assert.Equal(t, "https://cdn.test/sc.png", embed.Thumbnail.URL)

	require.Len(t, embed.Fields, 5)
	assert.Equal(t, "Group", embed.Fields[0].Name)
	assert.Equal(t, "Snow Crows", embed.Fields[0].Value)
	assert.Equal(t, "02:05.000", embed.Fields[1].Value)
	assert.Equal(t, "02:10.500", embed.Fields[2].Value)
	assert.Equal(t, "Current Patch", embed.Fields[3].Value)
	// the shortest roster array wins
	assert.Equal(t, "<:Firebrand:1> Alpha/a.1\nBeta/b.2", embed.Fields[4].Value)
}

func TestFormatLowmanRecord(t *testing.T) {
	f := newTestFormatter(nil)
	ev := &record.TimeRecord{
		Header:               record.Header{Type: record.TypeTime, BossID: "-19450"},
		DurationMS:           300000,
		IsLowman:             true,
		PreviousPlayerAmount: 5,
	}

	embed, err := f.Format(ev, era.AllTime)
	require.NoError(t, err)
	assert.Equal(t, "New best lowman log on Dhuum CM", embed.Title)
	require.Len(t, embed.Fields, 5)
	assert.Equal(t, "Previous Player Count", embed.Fields[2].Name)
	assert.Equal(t, "5", embed.Fields[2].Value)
	assert.Equal(t, "All Time", embed.Fields[3].Value)
	assert.Equal(t, "\u200b", embed.Fields[4].Value)
	// placeholder group icon falls back to the boss icon
	require.NotNil(t, embed.Thumbnail)
	assert.Equal(t, testBaseURL+"/static/dhuum.png", embed.Thumbnail.URL)
}

func TestFormatDPSRecord(t *testing.T) {
	f := newTestFormatter(nil)

	ev := &record.DPSRecord{
		Header: record.Header{
			Type:          record.TypeSupportDPS,
			BossID:        "-17759",
			IsLegendaryCM: true,
			GroupIcons:    []string{testBaseURL + "/static/groupIcons/defGroup.png"},
		},
		Character:   "Foo",
		Profession:  strPtr("Firebrand"),
		Account:     "Bar.1234",
		DPS:         12000.5,
		PreviousDPS: 11000,
	}

	embed, err := f.Format(ev, era.Current)
	require.NoError(t, err)
	assert.Equal(t, "New Support DPS record log on Arkk LCM", embed.Title)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "Support DPS", embed.Fields[0].Name)
	assert.Equal(t, "12000.5 (+1000.5)", embed.Fields[0].Value)
	assert.Equal(t, "Foo/Bar.1234", embed.Fields[2].Value)
	assert.Equal(t, testBaseURL+"/static/arkk.png", embed.Thumbnail.URL)
}

func TestFormatSuppressesBadDPSRecords(t *testing.T) {
	f := newTestFormatter(nil)

	for name, ev := range map[string]*record.DPSRecord{
		"placeholder account": {Header: record.Header{Type: record.TypeDPS, BossID: "19450"}, Account: "Conjured Sword", Profession: strPtr("Guardian")},
		"nil profession":      {Header: record.Header{Type: record.TypeDPS, BossID: "19450"}, Account: "Bar.1234"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.Format(ev, era.Current)
			assert.ErrorIs(t, err, ErrSuppressed)
		})
	}
}

func TestFormatReportedLog(t *testing.T) {
	f := newTestFormatter(nil)
	embed := f.FormatReportedLog(record.ReportedLog{
		Link: "abc", Reason: "wrong boss", BossID: "19450", BossName: "Dhuum", Duration: "05:00.000",
	})
	assert.Equal(t, "Log reported on Dhuum, reason: wrong boss", embed.Title)
	assert.Equal(t, testBaseURL+"/log/abc", embed.URL)
	assert.Equal(t, "05:00.000", embed.Fields[0].Value)
}
