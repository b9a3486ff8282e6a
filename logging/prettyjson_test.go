package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyJSONHandler_ValidIndentedJSON(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyJSONHandler(&buf, nil))

	log.Info("move decided", "turn", 7, "move", "up", "latency", 3*time.Millisecond, "err", errors.New("boom"))

	out := buf.String()
	t.Log(out)
	require.True(t, strings.HasSuffix(out, "}\n"))
	assert.Contains(t, out, "\n  \"msg\": \"move decided\"")

	var payload map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, "INFO", payload["level"])
	assert.Equal(t, float64(7), payload["turn"])
	assert.Equal(t, "up", payload["move"])
	assert.Equal(t, "3ms", payload["latency"])
	assert.Equal(t, "boom", payload["err"])
}

func TestPrettyJSONHandler_KeyOrder(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyJSONHandler(&buf, nil))

	log.Info("hello", "zebra", 1, "apple", 2)

	out := buf.String()
	order := []string{`"time"`, `"level"`, `"msg"`, `"zebra"`, `"apple"`}
	last := -1
	for _, k := range order {
		idx := strings.Index(out, k)
		require.Greater(t, idx, last, "key %s out of order in %s", k, out)
		last = idx
	}
}

func TestPrettyJSONHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyJSONHandler(&buf, nil)).
		With("game_id", "g1").
		WithGroup("req")

	log.Info("request", "path", "/move", slog.Group("snake", "id", "s1", "len", 3))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	req, ok := payload["req"].(map[string]any)
	require.True(t, ok, "expected req group in %s", buf.String())
	assert.Equal(t, "g1", payload["game_id"])
	assert.NotContains(t, req, "game_id")
	assert.Equal(t, "/move", req["path"])
	snake, ok := req["snake"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "s1", snake["id"])
}

func TestPrettyJSONHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "json", "debug")
	require.NoError(t, err)
	log.Debug("hi")
	assert.Contains(t, buf.String(), `"msg":"hi"`)

	_, err = New(&buf, "xml", "info")
	assert.Error(t, err)

	_, err = New(&buf, "text", "loud")
	assert.Error(t, err)
}
