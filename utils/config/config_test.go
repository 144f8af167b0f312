package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/config"
	"gopkg.in/yaml.v2"
)

func validConfig() config.Config {
	return config.Config{
		Control: config.Control{
			Step: config.ControlStep{Start: 0, Total: 600, Interval: 1},
			Seed: 42,
		},
		Grid: config.Grid{
			Width: 5, Height: 5, Capacity: 30,
			BaseSpeed: 12, CongestionFactor: 0.08,
			LambdaBase: 0.6, LambdaHeavy: 1.6,
			Layout: config.Layout{Rows: []string{
				"RRSRR",
				"RHRRR",
				"SRRRS",
				"RRRBR",
				"RRSRR",
			}},
		},
		Signal: config.Signal{GreenDuration: 6, RedDuration: 6, DrainAtGreen: 4},
		Controller: config.Controller{
			DecisionLatency: 0.25, EtaJitter: 0.5,
			CellTravelTime: 3, MinSpeedRatio: 0.5,
			OverrideTimeout: 6, PreemptRadius: 2,
		},
		Agent: config.Agent{
			Agents:     []config.AgentSpec{{Start: config.CellPosition{X: 0, Y: 0}, Goal: config.CellPosition{X: 4, Y: 4}}},
			ReplanProb: 0.02, EtaHorizon: 30, Lookahead: 3, MoveDrain: 3,
		},
	}
}

func TestValidateOK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejectsBadGrid(t *testing.T) {
	c := validConfig()
	c.Grid.Width = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Grid.Capacity = -1
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Grid.LambdaHeavy = 0.1 // below lambda_base
	assert.Error(t, c.Validate())
}

func TestValidateRejectsBadLayout(t *testing.T) {
	c := validConfig()
	c.Grid.Layout.Rows[2] = "RRXRR"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Grid.Layout.Rows = c.Grid.Layout.Rows[:4]
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Grid.Layout.Rows[0] = "RRR"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Grid.Layout = config.Layout{}
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Grid.Layout.Random = &config.RandomLayout{PSignal: 0.6, PBlock: 0.3, PHeavy: 0.3}
	assert.Error(t, c.Validate())
}

func TestValidateRejectsBadAgents(t *testing.T) {
	c := validConfig()
	c.Agent.Agents = nil
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Agent.Agents[0].Goal = config.CellPosition{X: 5, Y: 0}
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Agent.ReplanProb = 1.5
	assert.Error(t, c.Validate())

	// an explicit layout must not place the agent on a blocked cell
	c = validConfig()
	c.Agent.Agents[0].Goal = config.CellPosition{X: 3, Y: 3}
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Agent.Agents[0].Start = config.CellPosition{X: 3, Y: 3}
	assert.Error(t, c.Validate())

	// a random layout rewrites the start/goal cells instead
	c = validConfig()
	c.Grid.Layout = config.Layout{Random: &config.RandomLayout{PBlock: 1}}
	c.Agent.Agents[0].Goal = config.CellPosition{X: 3, Y: 3}
	assert.NoError(t, c.Validate())
}

func TestValidateRejectsBadController(t *testing.T) {
	c := validConfig()
	c.Controller.Planner = "astar"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Controller.MinSpeedRatio = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Controller.OverrideTimeout = 0
	assert.Error(t, c.Validate())
}

func TestRuntimeConfigDefaults(t *testing.T) {
	c := validConfig()
	rc := config.NewRuntimeConfig(c)
	assert.Equal(t, config.PlannerBFS, rc.All.Controller.Planner)
	assert.Equal(t, uint64(42), rc.C.Seed)
}

func TestYamlRoundTrip(t *testing.T) {
	data := `
control:
  step:
    start: 0
    total: 600
    interval: 1
  seed: 42
grid:
  width: 5
  height: 5
  capacity: 30
  base_speed: 12
  congestion_factor: 0.08
  lambda_base: 0.6
  lambda_heavy: 1.6
  layout:
    rows: [RRSRR, RHRRR, SRRRS, RRRBR, RRSRR]
signal:
  green_duration: 6
  red_duration: 6
  drain_at_green: 4
controller:
  decision_latency: 0.25
  eta_jitter: 0.5
  cell_travel_time: 3
  min_speed_ratio: 0.5
  override_timeout: 6
  preempt_radius: 2
agent:
  agents:
    - start: {x: 0, y: 0}
      goal: {x: 4, y: 4}
  replan_prob: 0.02
  eta_horizon: 30
  lookahead: 5
  move_drain: 3
`
	var c config.Config
	assert.NoError(t, yaml.UnmarshalStrict([]byte(data), &c))
	assert.NoError(t, c.Validate())
	assert.Equal(t, int32(30), c.Grid.Capacity)
	assert.Equal(t, "SRRRS", c.Grid.Layout.Rows[2])
}
