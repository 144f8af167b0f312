package signal_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/task"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/config"
)

func signalConfig(rows []string) config.Config {
	height := int32(len(rows))
	width := int32(len(rows[0]))
	return config.Config{
		Control: config.Control{
			Step: config.ControlStep{Start: 0, Total: 600, Interval: 1},
			Seed: 42,
		},
		Grid: config.Grid{
			Width: width, Height: height, Capacity: 30,
			BaseSpeed: 12, CongestionFactor: 0.08,
			Layout: config.Layout{Rows: rows},
		},
		Signal: config.Signal{GreenDuration: 6, RedDuration: 6, DrainAtGreen: 4},
		Controller: config.Controller{
			DecisionLatency: 0.25, EtaJitter: 0.5,
			CellTravelTime: 3, MinSpeedRatio: 0.5,
			OverrideTimeout: 6, PreemptRadius: 2,
		},
		Agent: config.Agent{
			Agents: []config.AgentSpec{{
				Start: config.CellPosition{X: 0, Y: 0},
				Goal:  config.CellPosition{X: 0, Y: 0},
			}},
			EtaHorizon: 30, Lookahead: 3, MoveDrain: 3,
		},
	}
}

func TestSignalPeriodicity(t *testing.T) {
	ctx := task.NewContext("test", signalConfig([]string{"RSR"}))
	m := ctx.SignalManager()
	assert.Equal(t, 1, m.Count())

	s, ok := m.Get(entity.Position{X: 1, Y: 0})
	assert.True(t, ok)
	assert.Equal(t, entity.PhaseRed, s.Phase())

	// red for 6 ticks, then green for 6 ticks, and so on
	phases := make([]entity.PhaseState, 0, 24)
	for i := 0; i < 24; i++ {
		m.Update(1)
		phases = append(phases, s.Phase())
	}
	for i, phase := range phases {
		want := entity.PhaseRed
		if ((i+1)/6)%2 == 1 {
			want = entity.PhaseGreen
		}
		assert.Equal(t, want, phase, "tick %d", i)
	}
	assert.Equal(t, int32(4), s.Switches())
}

func TestFlipResetsFullWindow(t *testing.T) {
	cfg := signalConfig([]string{"RSR"})
	cfg.Signal.GreenDuration = 2.5
	cfg.Signal.RedDuration = 2.5
	ctx := task.NewContext("test", cfg)
	m := ctx.SignalManager()
	s, _ := m.Get(entity.Position{X: 1, Y: 0})

	m.Update(1)
	m.Update(1)
	assert.Equal(t, entity.PhaseRed, s.Phase())

	// the timer crosses zero mid-step; the new window starts fresh,
	// the unused half-second is not carried over
	m.Update(1)
	assert.Equal(t, entity.PhaseGreen, s.Phase())
	assert.Equal(t, 2.5, s.Remaining())
	assert.Equal(t, int32(1), s.Switches())
}

func TestOverrideFreezesTimer(t *testing.T) {
	ctx := task.NewContext("test", signalConfig([]string{"RSR"}))
	m := ctx.SignalManager()
	s, _ := m.Get(entity.Position{X: 1, Y: 0})

	s.SetGreen()
	assert.True(t, s.Overridden())
	assert.Equal(t, entity.PhaseGreen, s.Phase())
	assert.Equal(t, int32(1), s.Switches())

	// timer frozen while overridden
	for i := 0; i < 50; i++ {
		m.Update(1)
	}
	assert.Equal(t, entity.PhaseGreen, s.Phase())
	assert.Equal(t, int32(1), s.Switches())
}

func TestOverrideIdempotentSwitchCount(t *testing.T) {
	ctx := task.NewContext("test", signalConfig([]string{"RSR"}))
	s, _ := ctx.SignalManager().Get(entity.Position{X: 1, Y: 0})

	s.SetRed() // already red, no phase change
	assert.True(t, s.Overridden())
	assert.Equal(t, int32(0), s.Switches())

	s.SetGreen()
	assert.Equal(t, int32(1), s.Switches())
	s.SetGreen()
	assert.Equal(t, int32(1), s.Switches())
}

func TestClearOverrideResumesFullWindow(t *testing.T) {
	ctx := task.NewContext("test", signalConfig([]string{"RSR"}))
	m := ctx.SignalManager()
	s, _ := m.Get(entity.Position{X: 1, Y: 0})

	s.SetGreen()
	m.Update(3) // frozen
	s.ClearOverride()
	assert.False(t, s.Overridden())

	// a full green window starts after the override ends
	for i := 0; i < 5; i++ {
		m.Update(1)
		assert.Equal(t, entity.PhaseGreen, s.Phase())
	}
	m.Update(1)
	assert.Equal(t, entity.PhaseRed, s.Phase())
}

func TestSnapshotOverrideRemaining(t *testing.T) {
	cfg := signalConfig([]string{"SRS"})
	cfg.Agent.Agents[0] = config.AgentSpec{
		Start: config.CellPosition{X: 1, Y: 0},
		Goal:  config.CellPosition{X: 1, Y: 0},
	}
	ctx := task.NewContext("test", cfg)
	m := ctx.SignalManager()

	snap := m.Snapshot()
	assert.Len(t, snap, 2)
	assert.Equal(t, entity.Position{X: 0, Y: 0}, snap[0].Position)
	assert.Equal(t, 6.0, snap[0].RemainingTime)

	s, _ := m.Get(entity.Position{X: 2, Y: 0})
	s.SetGreen()
	snap = m.Snapshot()
	assert.True(t, snap[1].Override)
	assert.True(t, math.IsInf(snap[1].RemainingTime, 1))
	assert.False(t, snap[0].Override)
}

func TestSensorSampling(t *testing.T) {
	cfg := signalConfig([]string{"SRS"})
	cfg.Agent.Agents[0] = config.AgentSpec{
		Start: config.CellPosition{X: 1, Y: 0},
		Goal:  config.CellPosition{X: 1, Y: 0},
	}
	ctx := task.NewContext("test", cfg)
	m := ctx.SignalManager()
	g := ctx.Grid()

	readings := m.Sample(12.5)
	assert.Len(t, readings, 2)
	for _, r := range readings {
		assert.Equal(t, g.Queue(r.Position), r.Queue)
		assert.Equal(t, g.EstimatedSpeed(r.Position), r.Speed)
		assert.Equal(t, 12.5, r.Time)
		assert.False(t, r.HasIncident())
	}

	g.ReportIncident(entity.Position{X: 2, Y: 0}, "flooding")
	readings = m.Sample(13.5)
	assert.True(t, readings[1].HasIncident())
	assert.Equal(t, "flooding", readings[1].Incident)
	// sampling is read-only
	assert.Equal(t, readings[0].Queue, g.Queue(readings[0].Position))
}
