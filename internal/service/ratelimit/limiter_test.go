package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterBurstThenBlock(t *testing.T) {
	now := time.Now()
	l := New()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("AAPL", 2, 1))
	assert.True(t, l.Allow("AAPL", 2, 1))
	assert.False(t, l.Allow("AAPL", 2, 1))
}

func TestLimiterRefills(t *testing.T) {
	now := time.Now()
	l := New()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("MSFT", 1, 2))
	assert.False(t, l.Allow("MSFT", 1, 2))

	now = now.Add(600 * time.Millisecond) // 1.2 tokens refilled
	assert.True(t, l.Allow("MSFT", 1, 2))
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := New()
	assert.True(t, l.Allow("a", 1, 1))
	assert.False(t, l.Allow("a", 1, 1))
	assert.True(t, l.Allow("b", 1, 1))
}
