package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer

	root := Setup(&buf, zerolog.InfoLevel, "json")
	lg := NewLogging(Module("service")).SetLogging(root)

	lg.Log().Debug().Msg("hidden")
	lg.Log().Info().Str("op", "create_case").Msg("accepted")

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m))
	assert.Equal(t, "service", m["module"])
	assert.Equal(t, "create_case", m["op"])
	assert.Equal(t, "accepted", m["message"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestSetupTerminal(t *testing.T) {
	var buf bytes.Buffer

	Setup(&buf, zerolog.DebugLevel, "terminal").Log().Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), "{")
}

func TestNopByDefault(t *testing.T) {
	lg := NewLogging(nil)
	assert.Equal(t, zerolog.Disabled, lg.Log().GetLevel())
}

func TestParse(t *testing.T) {
	lvl, err := ParseLevel(" Debug ")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)

	f, err := ParseFormat("TERMINAL")
	require.NoError(t, err)
	assert.Equal(t, "terminal", f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
