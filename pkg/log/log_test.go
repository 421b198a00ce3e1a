package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "", want: InfoLevel},
		{in: "debug", want: DebugLevel},
		{in: "WARN", want: WarnLevel},
		{in: "error", want: ErrorLevel},
		{in: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitJSONWithFields(t *testing.T) {
	defer func() {
		Logger = zerolog.Nop()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}()

	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})

	logger := WithNode(WithRecord(WithComponent("reconciler"), "42", "cdn1.example.com"), "edge.example.net", 443)
	logger.Info().Msg("node checked")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "reconciler", entry["component"])
	assert.Equal(t, "42", entry["record_id"])
	assert.Equal(t, "cdn1.example.com", entry["record"])
	assert.Equal(t, "edge.example.net:443", entry["node"])
	assert.Equal(t, "node checked", entry["message"])
}

func TestInitLevelFilters(t *testing.T) {
	defer func() {
		Logger = zerolog.Nop()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}()

	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})

	Info("dropped")
	assert.Zero(t, buf.Len())

	Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}
