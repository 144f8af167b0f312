package config

import (
	"fmt"
)

// 路径规划器名称
const (
	PlannerBFS        = "bfs"        // 无权最短路（默认）
	PlannerCongestion = "congestion" // 拥堵感知规划器
)

// Validate 校验配置
// 功能：在构造仿真系统之前对配置做快速失败检查
// 返回：配置错误，nil表示配置可用
// 说明：只有不可用的系统参数（非矩形布局、非正时长、非正容量等）
// 才在此失败，运行期的异常情况一律建模为可观测状态而非错误
func (c Config) Validate() error {
	if c.Control.Step.Total <= 0 {
		return fmt.Errorf("control.step.total must be positive, got %d", c.Control.Step.Total)
	}
	if c.Control.Step.Interval <= 0 {
		return fmt.Errorf("control.step.interval must be positive, got %f", c.Control.Step.Interval)
	}
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return fmt.Errorf("grid size must be positive, got %dx%d", c.Grid.Width, c.Grid.Height)
	}
	if c.Grid.Capacity <= 0 {
		return fmt.Errorf("grid.capacity must be positive, got %d", c.Grid.Capacity)
	}
	if c.Grid.BaseSpeed <= 0 {
		return fmt.Errorf("grid.base_speed must be positive, got %f", c.Grid.BaseSpeed)
	}
	if c.Grid.CongestionFactor < 0 {
		return fmt.Errorf("grid.congestion_factor must be non-negative, got %f", c.Grid.CongestionFactor)
	}
	if c.Grid.LambdaBase < 0 || c.Grid.LambdaHeavy < 0 {
		return fmt.Errorf("arrival rates must be non-negative, got base=%f heavy=%f", c.Grid.LambdaBase, c.Grid.LambdaHeavy)
	}
	if c.Grid.LambdaHeavy < c.Grid.LambdaBase {
		return fmt.Errorf("grid.lambda_heavy %f must be >= grid.lambda_base %f", c.Grid.LambdaHeavy, c.Grid.LambdaBase)
	}
	if err := c.Grid.Layout.validate(c.Grid.Width, c.Grid.Height); err != nil {
		return err
	}
	if c.Signal.GreenDuration <= 0 || c.Signal.RedDuration <= 0 {
		return fmt.Errorf("signal durations must be positive, got green=%f red=%f", c.Signal.GreenDuration, c.Signal.RedDuration)
	}
	if c.Signal.DrainAtGreen < 0 {
		return fmt.Errorf("signal.drain_at_green must be non-negative, got %d", c.Signal.DrainAtGreen)
	}
	if c.Controller.OverrideTimeout <= 0 {
		return fmt.Errorf("controller.override_timeout must be positive, got %f", c.Controller.OverrideTimeout)
	}
	if c.Controller.MinSpeedRatio <= 0 || c.Controller.MinSpeedRatio > 1 {
		return fmt.Errorf("controller.min_speed_ratio must be in (0,1], got %f", c.Controller.MinSpeedRatio)
	}
	if c.Controller.CellTravelTime <= 0 {
		return fmt.Errorf("controller.cell_travel_time must be positive, got %f", c.Controller.CellTravelTime)
	}
	if c.Controller.DecisionLatency < 0 || c.Controller.EtaJitter < 0 {
		return fmt.Errorf("controller latency/jitter must be non-negative, got %f/%f", c.Controller.DecisionLatency, c.Controller.EtaJitter)
	}
	if c.Controller.PreemptRadius < 0 {
		return fmt.Errorf("controller.preempt_radius must be non-negative, got %d", c.Controller.PreemptRadius)
	}
	switch c.Controller.Planner {
	case "", PlannerBFS, PlannerCongestion:
	default:
		return fmt.Errorf("controller.planner must be one of [%s %s], got %q", PlannerBFS, PlannerCongestion, c.Controller.Planner)
	}
	if len(c.Agent.Agents) == 0 {
		return fmt.Errorf("agent.agents must contain at least one entry")
	}
	for i, a := range c.Agent.Agents {
		for _, p := range []CellPosition{a.Start, a.Goal} {
			if p.X < 0 || p.X >= c.Grid.Width || p.Y < 0 || p.Y >= c.Grid.Height {
				return fmt.Errorf("agent %d position (%d,%d) out of grid %dx%d", i, p.X, p.Y, c.Grid.Width, c.Grid.Height)
			}
			// 显式布局下起止格点不得阻断（随机布局在构造时改写为道路）
			if len(c.Grid.Layout.Rows) > 0 && c.Grid.Layout.Rows[p.Y][p.X] == 'B' {
				return fmt.Errorf("agent %d position (%d,%d) is a blocked cell", i, p.X, p.Y)
			}
		}
	}
	if c.Agent.ReplanProb < 0 || c.Agent.ReplanProb > 1 {
		return fmt.Errorf("agent.replan_prob must be in [0,1], got %f", c.Agent.ReplanProb)
	}
	if c.Agent.EtaHorizon < 0 {
		return fmt.Errorf("agent.eta_horizon must be non-negative, got %f", c.Agent.EtaHorizon)
	}
	if c.Agent.Lookahead <= 0 {
		return fmt.Errorf("agent.lookahead must be positive, got %d", c.Agent.Lookahead)
	}
	if c.Agent.MoveDrain < 0 {
		return fmt.Errorf("agent.move_drain must be non-negative, got %d", c.Agent.MoveDrain)
	}
	return nil
}

// validate 校验布局配置
// 说明：显式布局必须是与路网尺寸一致的矩形且只含已知字符
func (l Layout) validate(width, height int32) error {
	if len(l.Rows) == 0 && l.Random == nil {
		return fmt.Errorf("grid.layout must specify rows or random")
	}
	if len(l.Rows) > 0 && l.Random != nil {
		return fmt.Errorf("grid.layout rows and random are mutually exclusive")
	}
	if l.Random != nil {
		p := l.Random.PSignal + l.Random.PBlock + l.Random.PHeavy
		if l.Random.PSignal < 0 || l.Random.PBlock < 0 || l.Random.PHeavy < 0 || p > 1 {
			return fmt.Errorf("grid.layout.random probabilities invalid: %+v", *l.Random)
		}
		return nil
	}
	if int32(len(l.Rows)) != height {
		return fmt.Errorf("grid.layout.rows has %d rows, grid height is %d", len(l.Rows), height)
	}
	for y, row := range l.Rows {
		if int32(len(row)) != width {
			return fmt.Errorf("grid.layout.rows[%d] has %d cells, grid width is %d", y, len(row), width)
		}
		for x, ch := range row {
			switch ch {
			case 'R', 'S', 'B', 'H':
			default:
				return fmt.Errorf("grid.layout.rows[%d][%d]: unknown cell %q (want R/S/B/H)", y, x, ch)
			}
		}
	}
	return nil
}

// RuntimeConfig 运行时配置
// 功能：存储仿真运行时的配置信息
// 说明：将YAML配置转换为运行时可用的配置对象，填充默认规划器
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置
}

// NewRuntimeConfig 根据配置初始化运行时配置
// 功能：创建运行时配置对象，补全缺省项
// 参数：config-原始配置对象（应当已通过Validate）
// 返回：初始化的运行时配置指针
func NewRuntimeConfig(config Config) *RuntimeConfig {
	rc := &RuntimeConfig{}

	rc.All = config
	rc.C = config.Control
	if rc.All.Controller.Planner == "" {
		rc.All.Controller.Planner = PlannerBFS
	}

	return rc
}
