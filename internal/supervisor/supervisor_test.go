package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/junevm/thermalctl/internal/ec"
	"github.com/junevm/thermalctl/internal/fan"
	"github.com/junevm/thermalctl/internal/scenario"
	"github.com/junevm/thermalctl/internal/sensor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestPoller(t *testing.T) *Poller {
	t.Helper()
	ctl, mem := ec.NewMemController()
	mem.Set(ec.AddrShiftMode, 0xC1)
	sr := sensor.NewReader(ctl, testLogger())
	fc := fan.NewController(ctl, sr, testLogger())
	sm, err := scenario.NewManager(ctl, fc, testLogger())
	require.NoError(t, err)
	return NewPoller(fc, sm, 5*time.Millisecond, testLogger())
}

func TestLatestStartsZeroValue(t *testing.T) {
	p := newTestPoller(t)
	snap := p.Latest()
	assert.True(t, snap.ObservedAt.IsZero())
}

func TestPollPublishesSnapshots(t *testing.T) {
	p := newTestPoller(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.poll(ctx) }()

	<-ctx.Done()
	require.NoError(t, <-done)

	snap := p.Latest()
	assert.False(t, snap.ObservedAt.IsZero())
	assert.Equal(t, scenario.Balanced, snap.Scenario.Current)
}
