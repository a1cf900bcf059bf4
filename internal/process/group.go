package process

import (
	"fmt"
	"time"

	"github.com/23skdu/longbow-bench/internal/logger"
	"github.com/23skdu/longbow-bench/internal/metrics"
	"github.com/23skdu/longbow-bench/internal/result"
	"github.com/23skdu/longbow-bench/internal/stats"
)

// Group runs the same worker binary count times.
type Group struct {
	processes []*Process
}

// NewGroup creates count idle processes of exe.
func NewGroup(exe string, count int) *Group {
	g := &Group{processes: make([]*Process, count)}
	for i := range g.processes {
		g.processes[i] = New(exe)
	}
	return g
}

// Processes exposes the members for per-process overrides.
func (g *Group) Processes() []*Process { return g.processes }

func (g *Group) Len() int { return len(g.processes) }

// AddArgumentAll adds the same argument to every member.
func (g *Group) AddArgumentAll(key, value string) {
	for _, p := range g.processes {
		p.AddArgument(key, value)
	}
}

func (g *Group) AddEnvVariableAll(key, value string) {
	for _, p := range g.processes {
		p.AddEnvVariable(key, value)
	}
}

// RunAll starts every member. Members already started stay running when a
// later one fails; WaitAll still has to be called.
func (g *Group) RunAll() error {
	for _, p := range g.processes {
		if err := p.Run(); err != nil {
			return err
		}
	}
	return nil
}

// SynchronizeAll runs the two-phase rendezvous iterations times: collect
// one byte from every member in any order, then release all of them.
// Members are released within one write of each other, not atomically.
func (g *Group) SynchronizeAll(iterations int) error {
	for i := 0; i < iterations; i++ {
		for _, p := range g.processes {
			if err := p.WaitForSignal(); err != nil {
				return fmt.Errorf("synchronization round %d: %w", i, err)
			}
		}
		for _, p := range g.processes {
			if err := p.Signal(); err != nil {
				return fmt.Errorf("synchronization round %d: %w", i, err)
			}
		}
		metrics.RecordSynchronizationRound()
	}
	return nil
}

// Abort closes every member's release pipe. It has to precede WaitAll when
// RunAll or SynchronizeAll failed, otherwise members that already signalled
// stay blocked waiting for a release that never comes.
func (g *Group) Abort() {
	for _, p := range g.processes {
		p.CloseRelease()
	}
}

// WaitAll waits for every member, failed or not.
func (g *Group) WaitAll() {
	for _, p := range g.processes {
		p.Wait()
	}
}

// Result is the first non-Success member result.
func (g *Group) Result() result.Result {
	for _, p := range g.processes {
		if r := p.Result(); r != result.Success {
			logger.Log.Error("Process failed", "name", p.Name(), "result", r.String())
			return r
		}
	}
	return result.Success
}

// PushMeasurements reads expected samples from every member and pushes them
// into sink. individual pushes each member's samples labelled with its
// name; averaged pushes the per-iteration mean across members, unlabelled.
// A member reporting the wrong sample count is a worker bug and panics.
func (g *Group) PushMeasurements(sink stats.Sink, expected int, unit stats.Unit, typ stats.Type, individual, averaged bool) {
	sums := make([]uint64, expected)
	for _, p := range g.processes {
		values, err := p.Measurements(expected)
		if err != nil {
			panic(err.Error())
		}
		for i, v := range values {
			sums[i] += v
			if individual {
				sink.PushValue(time.Duration(v), unit, typ, p.Name())
			}
		}
	}
	if !averaged || len(g.processes) == 0 {
		return
	}
	n := uint64(len(g.processes))
	for _, sum := range sums {
		sink.PushValue(time.Duration(sum/n), unit, typ, "")
	}
}
