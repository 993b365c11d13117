package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")

	log.Info("dropped")
	log.Warn("kept", "vacancy_id", "v-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "v-1", entry["vacancy_id"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "", "TEXT")

	log.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
