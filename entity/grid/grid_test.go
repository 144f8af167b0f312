package grid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/task"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/config"
)

func gridConfig(rows []string, lambdaBase, lambdaHeavy float64) config.Config {
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
			LambdaBase: lambdaBase, LambdaHeavy: lambdaHeavy,
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
				Goal:  config.CellPosition{X: width - 1, Y: height - 1},
			}},
			EtaHorizon: 30, Lookahead: 3, MoveDrain: 3,
		},
	}
}

func TestLayoutKinds(t *testing.T) {
	rows := []string{
		"RRSRR",
		"RHRRR",
		"SRRRS",
		"RRRBR",
		"RRSRR",
	}
	ctx := task.NewContext("test", gridConfig(rows, 0, 0))
	g := ctx.Grid()

	assert.Equal(t, int32(5), g.Width())
	assert.Equal(t, int32(5), g.Height())
	assert.Equal(t, entity.CellSignal, g.Kind(entity.Position{X: 2, Y: 0}))
	assert.Equal(t, entity.CellHeavy, g.Kind(entity.Position{X: 1, Y: 1}))
	assert.Equal(t, entity.CellBlock, g.Kind(entity.Position{X: 3, Y: 3}))
	assert.Equal(t, entity.CellRoad, g.Kind(entity.Position{X: 0, Y: 0}))

	signals := g.CellsOfKind(entity.CellSignal)
	assert.Equal(t, []entity.Position{
		{X: 2, Y: 0}, {X: 0, Y: 2}, {X: 4, Y: 2}, {X: 2, Y: 4},
	}, signals)

	assert.True(t, g.InGrid(entity.Position{X: 4, Y: 4}))
	assert.False(t, g.InGrid(entity.Position{X: 5, Y: 0}))
	assert.False(t, g.InGrid(entity.Position{X: 0, Y: -1}))
}

func TestExplicitLayoutPreserved(t *testing.T) {
	rows := []string{"SRH"}
	cfg := gridConfig(rows, 0, 0)
	cfg.Agent.Agents[0] = config.AgentSpec{
		Start: config.CellPosition{X: 0, Y: 0},
		Goal:  config.CellPosition{X: 2, Y: 0},
	}
	ctx := task.NewContext("test", cfg)
	g := ctx.Grid()

	// declared kinds survive, even at the agent's start and goal
	assert.Equal(t, entity.CellSignal, g.Kind(entity.Position{X: 0, Y: 0}))
	assert.Equal(t, entity.CellHeavy, g.Kind(entity.Position{X: 2, Y: 0}))
}

func TestRandomLayoutClearsStartGoal(t *testing.T) {
	cfg := gridConfig([]string{"RRR"}, 0, 0)
	cfg.Grid.Layout = config.Layout{Random: &config.RandomLayout{PBlock: 1}}
	cfg.Agent.Agents[0] = config.AgentSpec{
		Start: config.CellPosition{X: 0, Y: 0},
		Goal:  config.CellPosition{X: 2, Y: 0},
	}
	ctx := task.NewContext("test", cfg)
	g := ctx.Grid()

	// a generated block under the agent is rewritten to road
	assert.Equal(t, entity.CellRoad, g.Kind(entity.Position{X: 0, Y: 0}))
	assert.Equal(t, entity.CellRoad, g.Kind(entity.Position{X: 2, Y: 0}))
	assert.Equal(t, entity.CellBlock, g.Kind(entity.Position{X: 1, Y: 0}))
}

func TestInitialQueueBounds(t *testing.T) {
	rows := []string{
		"RRSRR",
		"RHRRR",
		"SRRRS",
		"RRRBR",
		"RRSRR",
	}
	ctx := task.NewContext("test", gridConfig(rows, 0, 0))
	g := ctx.Grid()

	for pos, q := range g.Queues() {
		switch g.Kind(pos) {
		case entity.CellBlock:
			assert.Equal(t, int32(0), q)
		case entity.CellHeavy:
			assert.GreaterOrEqual(t, q, int32(6))
			assert.LessOrEqual(t, q, int32(12))
		default:
			assert.GreaterOrEqual(t, q, int32(0))
			assert.LessOrEqual(t, q, int32(4))
		}
	}
}

func TestArrivalsRespectCapacity(t *testing.T) {
	rows := []string{
		"HHH",
		"HHH",
		"HHH",
	}
	ctx := task.NewContext("test", gridConfig(rows, 1.6, 8.0))
	g := ctx.Grid()

	for i := 0; i < 600; i++ {
		g.ApplyArrivals()
		for _, q := range g.Queues() {
			assert.LessOrEqual(t, q, int32(30))
			assert.GreaterOrEqual(t, q, int32(0))
		}
	}
	// such a load must overflow
	assert.Greater(t, g.Spillbacks(), int64(0))
}

func TestBlockCellNeverArrives(t *testing.T) {
	rows := []string{
		"RBR",
		"RBR",
		"RBR",
	}
	cfg := gridConfig(rows, 5.0, 5.0)
	cfg.Agent.Agents[0].Goal = config.CellPosition{X: 0, Y: 2}
	ctx := task.NewContext("test", cfg)
	g := ctx.Grid()

	for i := 0; i < 100; i++ {
		g.ApplyArrivals()
	}
	assert.Equal(t, int32(0), g.Queue(entity.Position{X: 1, Y: 1}))
}

func TestDrainBounded(t *testing.T) {
	rows := []string{"HR"}
	cfg := gridConfig(rows, 0, 0)
	cfg.Agent.Agents[0] = config.AgentSpec{
		Start: config.CellPosition{X: 1, Y: 0},
		Goal:  config.CellPosition{X: 1, Y: 0},
	}
	ctx := task.NewContext("test", cfg)
	g := ctx.Grid()

	pos := entity.Position{X: 0, Y: 0}
	q := g.Queue(pos)
	assert.GreaterOrEqual(t, q, int32(6))

	// partial drain
	got := g.Drain(pos, 2)
	assert.Equal(t, int32(2), got)
	assert.Equal(t, q-2, g.Queue(pos))

	// over-drain stops at zero
	got = g.Drain(pos, 100)
	assert.Equal(t, q-2, got)
	assert.Equal(t, int32(0), g.Queue(pos))

	got = g.Drain(pos, 5)
	assert.Equal(t, int32(0), got)
	assert.Equal(t, int32(0), g.Queue(pos))

	assert.Equal(t, int64(q), g.Throughput())
}

func TestEstimatedSpeedDecreasesWithQueue(t *testing.T) {
	rows := []string{"HR"}
	cfg := gridConfig(rows, 0, 0)
	cfg.Agent.Agents[0] = config.AgentSpec{
		Start: config.CellPosition{X: 1, Y: 0},
		Goal:  config.CellPosition{X: 1, Y: 0},
	}
	ctx := task.NewContext("test", cfg)
	g := ctx.Grid()

	pos := entity.Position{X: 0, Y: 0}
	busy := g.EstimatedSpeed(pos)
	assert.Less(t, busy, g.BaseSpeed())

	// empty cell runs at base speed
	g.Drain(pos, 100)
	assert.Equal(t, g.BaseSpeed(), g.EstimatedSpeed(pos))
}

func TestArrivalsReproducible(t *testing.T) {
	rows := []string{
		"RHRHR",
		"HRRRH",
		"RRRRR",
		"HRRRH",
		"RHRHR",
	}
	cfg := gridConfig(rows, 0.6, 1.6)
	ctx1 := task.NewContext("a", cfg)
	ctx2 := task.NewContext("b", cfg)

	for i := 0; i < 200; i++ {
		ctx1.Grid().ApplyArrivals()
		ctx2.Grid().ApplyArrivals()
	}
	assert.Equal(t, ctx1.Grid().Queues(), ctx2.Grid().Queues())
	assert.Equal(t, ctx1.Grid().Spillbacks(), ctx2.Grid().Spillbacks())
}

func TestIncidentOverlay(t *testing.T) {
	rows := []string{"RSR"}
	cfg := gridConfig(rows, 0, 0)
	cfg.Agent.Agents[0] = config.AgentSpec{
		Start: config.CellPosition{X: 0, Y: 0},
		Goal:  config.CellPosition{X: 2, Y: 0},
	}
	ctx := task.NewContext("test", cfg)
	g := ctx.Grid()

	pos := entity.Position{X: 1, Y: 0}
	_, ok := g.Incident(pos)
	assert.False(t, ok)

	g.ReportIncident(pos, "stalled truck")
	desc, ok := g.Incident(pos)
	assert.True(t, ok)
	assert.Equal(t, "stalled truck", desc)
	// layout unchanged
	assert.Equal(t, entity.CellSignal, g.Kind(pos))
}
