package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReadingObject(t *testing.T) {
	r, ok := parseReading([]byte(`{"ts": 1700000000000, "x": 0.1, "y": -0.9, "z": 0.2}`))
	require.True(t, ok)
	assert.Equal(t, 0.1, r.X)
	assert.Equal(t, -0.9, r.Y)
	assert.Equal(t, 0.2, r.Z)
	assert.Equal(t, time.Unix(0, 1700000000000*1e6), r.Timestamp)
}

func TestParseReadingAlternateKeys(t *testing.T) {
	r, ok := parseReading([]byte(`{"gx": 0.5, "gy": 0.5, "gz": -0.5}`))
	require.True(t, ok)
	assert.Equal(t, 0.5, r.X)
	assert.Equal(t, 0.5, r.Y)
	assert.Equal(t, -0.5, r.Z)
	assert.False(t, r.Timestamp.IsZero())
}

func TestParseReadingBareArray(t *testing.T) {
	r, ok := parseReading([]byte(`[0.2, -0.8, 0.1]`))
	require.True(t, ok)
	assert.Equal(t, 0.2, r.X)
	assert.Equal(t, -0.8, r.Y)
}

func TestParseReadingNestedGravity(t *testing.T) {
	r, ok := parseReading([]byte(`{"timestamp": 1700000000000, "gravity": [0.0, -1.0, 0.0]}`))
	require.True(t, ok)
	assert.Equal(t, -1.0, r.Y)
}

func TestParseReadingRejectsGarbage(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"x": 1, "y": 2}`,
		`[1, 2]`,
		`{"gravity": ["a", "b", "c"]}`,
		`{}`,
	} {
		_, ok := parseReading([]byte(payload))
		assert.Falsef(t, ok, "payload %q should be rejected", payload)
	}
}

func TestStatisticsSnapshot(t *testing.T) {
	s := NewStatistics()
	s.RecordMessage("devices/a/gravity", true)
	s.RecordMessage("devices/a/gravity", true)
	s.RecordMessage("devices/b/gravity", false)

	snap := s.GetSnapshot()
	assert.Equal(t, int64(3), snap["messages_received"])
	assert.Equal(t, int64(2), snap["parse_successes"])
	assert.Equal(t, int64(1), snap["parse_failures"])
	assert.InDelta(t, 66.6, snap["success_rate"].(float64), 0.1)
}
