package memorylimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowNamed(t *testing.T) {
	l := New(map[string]Limit{
		"login":   {Limit: 2, Window: time.Minute},
		"default": {Limit: 1, Window: time.Minute},
	})

	ok, err := l.AllowNamed("login", "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = l.AllowNamed("login", "ip:1.2.3.4")
	assert.True(t, ok)
	ok, _ = l.AllowNamed("login", "ip:1.2.3.4")
	assert.False(t, ok)

	// A different key has its own window.
	ok, _ = l.AllowNamed("login", "ip:5.6.7.8")
	assert.True(t, ok)
}

func TestAllowNamed_DefaultBucket(t *testing.T) {
	l := New(map[string]Limit{"default": {Limit: 1, Window: time.Minute}})
	ok, _ := l.AllowNamed("unknown", "k")
	assert.True(t, ok)
	ok, _ = l.AllowNamed("unknown", "k")
	assert.False(t, ok)
}

func TestAllowNamed_NoLimitsMeansUnlimited(t *testing.T) {
	l := New(nil)
	for i := 0; i < 100; i++ {
		ok, err := l.AllowNamed("anything", "k")
		require.NoError(t, err)
		require.True(t, ok)
	}
}
