package temporal

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-15T10:00:00Z", t0},
		{"2024-01-15T10:00:00.5Z", t0.Add(500 * time.Millisecond)},
		{"2024-01-15T12:00:00+02:00", t0},
		{"2024-01-15T10:00:00", t0},
		{"2024-01-15T10:00:00.123456", t0.Add(123456 * time.Microsecond)},
		{"2024-01-15 10:00:00", t0},
		{"2024-01-15 10:00:00Z", t0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2024-13-45T99:00:00Z", "1705312800"} {
		_, err := ParseTimestamp(in)
		assert.Error(t, err, in)
	}
}

func TestDecode_ExchangeFormat(t *testing.T) {
	input := `{
	  "name": "orders",
	  "points": [
	    {"event_id": "o-1", "valid_time": "2024-01-15T10:00:00Z", "transaction_time": "2024-01-15T10:00:30Z", "decision_time": null, "data": {"amount": 12.5}},
	    {"event_id": "o-2", "valid_time": "2024-01-15T10:05:00", "transaction_time": "2024-01-15T10:04:00", "decision_time": "2024-01-15T10:06:00", "data": {}}
	  ],
	  "metadata": {"created": "2024-01-15T11:00:00Z", "point_count": 2}
	}`

	tl, err := Decode(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "orders", tl.Name)
	require.Len(t, tl.Points, 2)
	assert.Nil(t, tl.Points[0].DecisionTime)
	assert.Equal(t, 12.5, tl.Points[0].Data["amount"])
	require.NotNil(t, tl.Points[1].DecisionTime)
	assert.Equal(t, -time.Minute, tl.Points[1].Lag())

	anomalies := Detect(tl)
	require.Len(t, anomalies, 1)
	assert.Equal(t, TimeTravel, anomalies[0].Type)
}

func TestDecode_Defaults(t *testing.T) {
	input := `{"points": [{"valid_time": "2024-01-15T10:00:00Z", "transaction_time": "2024-01-15T10:00:00Z"}]}`

	tl, err := Decode(strings.NewReader(input))
	require.NoError(t, err)

	assert.Empty(t, tl.Name)
	assert.Equal(t, UnnamedTimeline, tl.DisplayName())
	require.Len(t, tl.Points, 1)
	assert.Equal(t, "evt_1705312800", tl.Points[0].ID)
	assert.NotNil(t, tl.Points[0].Data)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not json", `nope`, "decode timeline"},
		{"missing valid_time", `{"points":[{"event_id":"a","transaction_time":"2024-01-15T10:00:00Z"}]}`, "valid_time is required"},
		{"missing transaction_time", `{"points":[{"event_id":"a","valid_time":"2024-01-15T10:00:00Z"}]}`, "transaction_time is required"},
		{"bad timestamp", `{"points":[{"event_id":"a","valid_time":"soon","transaction_time":"2024-01-15T10:00:00Z"}]}`, "valid_time"},
		{"bad decision_time", `{"points":[{"event_id":"a","valid_time":"2024-01-15T10:00:00Z","transaction_time":"2024-01-15T10:00:00Z","decision_time":"later"}]}`, "decision_time"},
		{"duplicate id", `{"points":[
			{"event_id":"a","valid_time":"2024-01-15T10:00:00Z","transaction_time":"2024-01-15T10:00:00Z"},
			{"event_id":"a","valid_time":"2024-01-15T10:01:00Z","transaction_time":"2024-01-15T10:01:00Z"}]}`, "duplicate event_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEncodeDecode_PreservesDetection(t *testing.T) {
	original := ExampleTimeline("roundtrip", t0)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, original, nil))
	assert.NotContains(t, buf.String(), "metadata")

	decoded, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, original.Name, decoded.Name)
	require.Len(t, decoded.Points, original.Len())
	for i := range original.Points {
		assert.Equal(t, original.Points[i].ID, decoded.Points[i].ID)
		assert.True(t, original.Points[i].ValidTime.Equal(decoded.Points[i].ValidTime))
		assert.True(t, original.Points[i].TransactionTime.Equal(decoded.Points[i].TransactionTime))
	}
	assert.Equal(t, Detect(original), Detect(decoded))
	assert.Equal(t, MustFingerprint(original), MustFingerprint(decoded))
}

func TestEncodeDecode_KeepsEmptyName(t *testing.T) {
	original := timelineOf(point("a", t0, t0.Add(time.Second)))
	original.Name = ""

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, original, nil))
	decoded, err := Decode(&buf)
	require.NoError(t, err)

	assert.Empty(t, decoded.Name)
	assert.Equal(t, MustFingerprint(original), MustFingerprint(decoded))
}

func TestSaveFileLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.json")
	original := ExampleTimeline("", t0)

	require.NoError(t, SaveFile(path, original, t0.Add(time.Hour)))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Example Timeline", loaded.Name)
	assert.Equal(t, original.Len(), loaded.Len())
	assert.Equal(t, Detect(original), Detect(loaded))
}

func TestSaveFile_WritesMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.json")
	require.NoError(t, SaveFile(path, ExampleTimeline("", t0), t0))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	meta, ok := raw["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2024-01-15T10:00:00Z", meta["created"])
	assert.Equal(t, float64(8), meta["point_count"])
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open timeline")
}

func TestPointJSON(t *testing.T) {
	p := Point{ID: "x", ValidTime: t0, TransactionTime: t0.Add(time.Second)}

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"event_id": "x",
		"valid_time": "2024-01-15T10:00:00Z",
		"transaction_time": "2024-01-15T10:00:01Z",
		"decision_time": null,
		"data": {}
	}`, string(b))

	var back Point
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, "x", back.ID)
	assert.Equal(t, time.Second, back.Lag())
}
