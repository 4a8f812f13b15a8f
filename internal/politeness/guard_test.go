package politeness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paulino-Cristovao/webscrap/internal/crawler"
)

type recordingPauser struct {
	delays []time.Duration
}

func (r *recordingPauser) Pause(_ context.Context, delay time.Duration) {
	r.delays = append(r.delays, delay)
}

func TestNextDelay(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		min     time.Duration
		latency time.Duration
		want    time.Duration
	}{
		{"floor wins for fast responses", time.Second, 400 * time.Millisecond, time.Second},
		{"slow responses back off", time.Second, 4 * time.Second, 2 * time.Second},
		{"no fetch uses floor", 1500 * time.Millisecond, 0, 1500 * time.Millisecond},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextDelay(tc.min, tc.latency, DefaultLatencyFactor))
		})
	}
}

func TestGuardThrottleUsesAdaptiveDelay(t *testing.T) {
	t.Parallel()

	pauser := &recordingPauser{}
	guard := NewGuard(Config{MinDelay: time.Second}, nil, nil)
	guard.pauser = pauser

	guard.Throttle(context.Background(), 3*time.Second)
	guard.Throttle(context.Background(), 100*time.Millisecond)

	require.Len(t, pauser.delays, 2)
	assert.Equal(t, 1500*time.Millisecond, pauser.delays[0])
	assert.Equal(t, time.Second, pauser.delays[1])
}

func TestGuardCrawlDelayRaisesFloor(t *testing.T) {
	t.Parallel()

	base := robotsServer(t, 200, "User-agent: *\nCrawl-delay: 3\n")
	robots := LoadRobots(context.Background(), nil, base, "bot", nil)
	guard := NewGuard(Config{MinDelay: time.Second}, robots, nil)
	assert.Equal(t, 3*time.Second, guard.Delay(0))
}

func TestTimerPauseHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	(&timerPauseController{}).Pause(ctx, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCheckHeaders(t *testing.T) {
	t.Parallel()

	guard := NewGuard(Config{MaxBytes: 1024}, nil, nil)

	testCases := []struct {
		name        string
		contentType string
		length      int64
		reason      crawler.SkipReason
	}{
		{"html ok", "text/html; charset=utf-8", 100, ""},
		{"xhtml ok", "application/xhtml+xml", -1, ""},
		{"plain ok", "text/plain", 1024, ""},
		{"missing type ok", "", -1, ""},
		{"pdf rejected", "application/pdf", 100, crawler.SkipContentType},
		{"image rejected", "image/png", -1, crawler.SkipContentType},
		{"oversize rejected", "text/html", 1025, crawler.SkipTooLarge},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := guard.CheckHeaders("https://example.com/x", tc.contentType, tc.length)
			if tc.reason == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, crawler.ErrSoftSkip))
			reason, ok := crawler.SkipReasonOf(err)
			require.True(t, ok)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestGuardDefaults(t *testing.T) {
	t.Parallel()

	guard := NewGuard(Config{}, nil, nil)
	assert.Equal(t, DefaultMaxBytes, guard.MaxBytes())
	assert.True(t, guard.Allowed("https://example.com/anything"))
	assert.False(t, guard.Exceeds(DefaultMaxBytes))
	assert.True(t, guard.Exceeds(DefaultMaxBytes+1))
}
