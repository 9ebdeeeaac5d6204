package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARNING "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestInitOnce(t *testing.T) {
	var buf bytes.Buffer
	l := Init(Options{Level: "debug", Output: &buf})
	l.Debug().Str("k", "v").Msg("first")
	require.True(t, strings.Contains(buf.String(), `"k":"v"`))

	// A second Init does not retarget the existing logger.
	again := Init(Options{Level: "error"})
	again.Debug().Msg("second")
	assert.Contains(t, buf.String(), "second")
	assert.Equal(t, l, Get())
}
