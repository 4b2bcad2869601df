package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"time","bossID":"-19450","eraID":"24-06","duration":125000,"previousDuration":130000,"isLowman":1,"previousPlayerAmount":4,"players":["a.1"],"players_chars":["A"],"players_professions":["Firebrand"],"isLegendaryCM":"true"}`))
	require.NoError(t, err)
	tr, ok := ev.(*TimeRecord)
	require.True(t, ok)
	assert.Equal(t, TypeTime, tr.Type)
	assert.Equal(t, int64(125000), tr.DurationMS)
	assert.True(t, bool(tr.IsLowman))
	assert.True(t, bool(tr.IsLegendaryCM))
	assert.True(t, Lowman(ev))

	ev, err = DecodeEvent([]byte(`{"type":"supportdps","bossID":"17759","dps":1200.5,"previousDps":1000,"profession":null}`))
	require.NoError(t, err)
	dr, ok := ev.(*DPSRecord)
	require.True(t, ok)
	assert.Equal(t, TypeSupportDPS, dr.Head().Type)
	assert.Nil(t, dr.Profession)
	assert.False(t, Lowman(ev))
}

func TestDecodeEventRejects(t *testing.T) {
	for name, body := range map[string]string{
		"malformed":       `{"type":`,
		"missing type":    `{"bossID":"1"}`,
		"unknown type":    `{"type":"heal","bossID":"1"}`,
		"missing boss":    `{"type":"dps"}`,
		"non-string type": `{"type":3,"bossID":"1"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(body))
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestTypeNames(t *testing.T) {
	for _, rt := range Types {
		parsed, err := ParseType(rt.String())
		require.NoError(t, err)
		assert.Equal(t, rt, parsed)
		assert.True(t, rt.Valid())
	}
	assert.Equal(t, "Support DPS", TypeSupportDPS.Title())
	assert.False(t, Type(0).Valid())
}

func TestTextAcceptsNumbers(t *testing.T) {
	var r ReportedLog
	require.NoError(t, json.Unmarshal([]byte(`{"duration":301.5}`), &r))
	assert.Equal(t, Text("301.5"), r.Duration)
	require.NoError(t, json.Unmarshal([]byte(`{"duration":"05:01.500"}`), &r))
	assert.Equal(t, Text("05:01.500"), r.Duration)
}

func TestFormatStat(t *testing.T) {
	assert.Equal(t, "50000", FormatStat(50000))
	assert.Equal(t, "2000", FormatStat(50000-48000))
	assert.Equal(t, "1200.5", FormatStat(1200.5))
}
