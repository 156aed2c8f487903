// Package supervisor runs the background hardware poll loop that keeps
// fan/scenario state fresh for the TUI, under an oversight tree so a
// panic in the poll body (e.g. a hwmon device vanishing mid-read) restarts
// the loop instead of taking down the whole process.
package supervisor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"cirello.io/oversight/v2"
	"github.com/rs/zerolog"

	"github.com/junevm/thermalctl/internal/fan"
	"github.com/junevm/thermalctl/internal/scenario"
)

// Snapshot is the latest polled state, published for readers via an
// atomic.Value so the TUI never blocks waiting on the poll loop.
type Snapshot struct {
	Fan        fan.Info
	Scenario   scenario.Info
	Err        error
	ObservedAt time.Time
}

// Poller owns no hardware itself — it polls through the shared fan and
// scenario controllers supplied at construction, same single-owner rule
// the EC transport enforces.
type Poller struct {
	fan      *fan.Controller
	scenario *scenario.Manager
	interval time.Duration
	log      zerolog.Logger

	latest atomic.Value // holds Snapshot
}

// NewPoller builds a Poller. interval is the delay between polls; the
// teacher's own TUI ticker uses one second, which is the default callers
// should pass absent a reason to change it.
func NewPoller(fc *fan.Controller, sm *scenario.Manager, interval time.Duration, log zerolog.Logger) *Poller {
	p := &Poller{fan: fc, scenario: sm, interval: interval, log: log}
	p.latest.Store(Snapshot{})
	return p
}

// Latest returns the most recently published Snapshot. Safe to call from
// any goroutine, including the TUI's render loop.
func (p *Poller) Latest() Snapshot {
	return p.latest.Load().(Snapshot)
}

func (p *Poller) poll(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap := Snapshot{ObservedAt: time.Now()}

			fanInfo, err := p.fan.GetFanInfo()
			if err != nil {
				snap.Err = err
				p.log.Debug().Err(err).Msg("poll: fan info unavailable")
			} else {
				snap.Fan = fanInfo
			}

			scenarioInfo, err := p.scenario.GetCurrentInfo()
			if err != nil {
				snap.Err = err
				p.log.Debug().Err(err).Msg("poll: scenario info unavailable")
			} else {
				snap.Scenario = scenarioInfo
			}

			p.latest.Store(snap)
		}
	}
}

// childProcess wraps poll as an oversight.ChildProcess, recovering from
// any panic and surfacing it as an error so the tree restarts the loop
// instead of crashing the process.
func (p *Poller) childProcess() oversight.ChildProcess {
	return func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("supervisor: poll loop panicked: %v", r)
			}
		}()
		return p.poll(ctx)
	}
}

// Run starts the supervision tree and blocks until ctx is canceled. The
// poll loop is restarted under oversight.DefaultRestartStrategy if it
// ever returns an error.
func (p *Poller) Run(ctx context.Context) error {
	tree := oversight.New(
		oversight.NeverHalt(),
		oversight.DefaultRestartStrategy(),
	)

	if err := tree.Add(p.childProcess(), oversight.Transient(), oversight.Timeout(5*time.Second), "hw-poller"); err != nil {
		return fmt.Errorf("supervisor: add poll loop to tree: %w", err)
	}

	return tree.Start(ctx)
}
