package controller

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/config"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/randengine"
)

// log 控制中心模块的日志记录器
var log = logrus.WithField("module", "controller")

// Controller 信号控制中心
// 功能：采集传感器报告、预测ETA、执行信号接管并维护决策日志
// 说明：信号接管是相位的唯一外部写入方，全部决策路径持锁串行化，
// 任何一致读（PhaseAt）都不会观测到写了一半的走廊；
// 决策日志只追加，记录追加后不可变
type Controller struct {
	ctx entity.ITaskContext
	mtx sync.Mutex

	planner  entity.IRoutePlanner
	readings []entity.SensorReading

	decisions        []*entity.Decision
	lastDecisionTime float64

	decisionLatency float64
	etaJitter       float64
	cellTravelTime  float64
	minSpeedRatio   float64
	preemptRadius   int32

	generator *randengine.Engine
}

// New 创建控制中心
// 功能：按配置装配路径规划器并初始化决策状态
// 参数：ctx-任务上下文，seed-本组件随机数种子
// 返回：初始化完成的控制中心实例
func New(ctx entity.ITaskContext, seed uint64) *Controller {
	cfg := ctx.RuntimeConfig().All.Controller
	c := &Controller{
		ctx:              ctx,
		lastDecisionTime: -1,
		decisionLatency:  cfg.DecisionLatency,
		etaJitter:        cfg.EtaJitter,
		cellTravelTime:   cfg.CellTravelTime,
		minSpeedRatio:    cfg.MinSpeedRatio,
		preemptRadius:    cfg.PreemptRadius,
		generator:        randengine.New(seed),
	}
	switch cfg.Planner {
	case config.PlannerCongestion:
		c.planner = &congestionPlanner{
			grid:           ctx.Grid(),
			cellTravelTime: cfg.CellTravelTime,
			minSpeedRatio:  cfg.MinSpeedRatio,
		}
	default:
		c.planner = &bfsPlanner{grid: ctx.Grid()}
	}
	return c
}

// PollSensors 拉取全量传感器报告
// 功能：触发一轮全网采样并缓存结果
// 返回：按行优先顺序排列的传感器报告
func (c *Controller) PollSensors() []entity.SensorReading {
	readings := c.ctx.SignalManager().Sample(c.ctx.Clock().T)
	c.mtx.Lock()
	c.readings = readings
	c.mtx.Unlock()
	for _, r := range readings {
		if r.HasIncident() {
			log.Warnf("incident at %v: %s (queue=%d)", r.Position, r.Incident, r.Queue)
		}
	}
	return readings
}

// Readings 获取最近一次采样结果
func (c *Controller) Readings() []entity.SensorReading {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.readings
}

// ComputeRoute 计算start到goal的路径
// 说明：委托给装配的规划器；目标不可达时返回[start]
func (c *Controller) ComputeRoute(start, goal entity.Position) []entity.Position {
	return c.planner.ComputeRoute(start, goal)
}

// PredictETA 预测通过路径片段的总时间
// 功能：对片段逐格点累加通行时间，再加决策时延与有界随机抖动
// 参数：segment-待通过的格点序列
// 返回：含时延与抖动的时间估计（秒）
// 算法说明：
// 1. 单格点通行时间 = cell_travel_time / max(min_speed_ratio, v/v_base)
// 2. 速度比下限保证单格点耗时有界，重度拥堵不会使估计发散
// 3. 抖动取[0, eta_jitter)上的均匀随机数
// 说明：排队越长估计越大（单调），调用方以该估计对照请求阈值
func (c *Controller) PredictETA(segment []entity.Position) float64 {
	grid := c.ctx.Grid()
	eta := c.decisionLatency
	for _, pos := range segment {
		ratio := grid.EstimatedSpeed(pos) / grid.BaseSpeed()
		if ratio < c.minSpeedRatio {
			ratio = c.minSpeedRatio
		}
		eta += c.cellTravelTime / ratio
	}
	return eta + c.generator.UniformFloat64(c.etaJitter)
}

// IssuePreemption 执行信号接管
// 功能：为应急车辆开辟通行走廊：下一跳信号灯置绿，其曼哈顿邻域内
// 其余信号灯置红，并记录一条决策
// 参数：agentID-发起车辆，agentPos-车辆当前位置，
// corridor-自车辆当前位置起的路径片段，severity-优先级
// 返回：本次追加的决策记录
// 算法说明：
// 1. 下一跳取corridor[1]（单元素走廊退化为corridor[0]）
// 2. 下一跳为信号灯路口时置绿
// 3. 按行优先顺序遍历其余信号灯，曼哈顿距离不超过半径的置红
// 说明：整个动作集持锁原子执行，动作按记录顺序施加
func (c *Controller) IssuePreemption(agentID int32, agentPos entity.Position, corridor []entity.Position, severity int32) *entity.Decision {
	if len(corridor) == 0 {
		return nil
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()

	nextHop := corridor[0]
	if len(corridor) > 1 {
		nextHop = corridor[1]
	}
	signals := c.ctx.SignalManager()
	actions := make([]entity.DecisionAction, 0, 4)
	if s, ok := signals.Get(nextHop); ok {
		s.SetGreen()
		actions = append(actions, entity.DecisionAction{Kind: entity.ActionSetGreen, Position: nextHop})
	}
	for _, pos := range signals.Positions() {
		if pos == nextHop || pos.ManhattanDistance(nextHop) > c.preemptRadius {
			continue
		}
		s, _ := signals.Get(pos)
		s.SetRed()
		actions = append(actions, entity.DecisionAction{Kind: entity.ActionSetRed, Position: pos})
	}

	now := c.ctx.Clock()
	decision := &entity.Decision{
		Time:          now.T,
		Step:          now.InternalStep,
		AgentID:       agentID,
		AgentPosition: agentPos,
		Corridor:      corridor,
		Actions:       actions,
		Severity:      severity,
	}
	c.decisions = append(c.decisions, decision)
	c.lastDecisionTime = decision.Time
	log.Debugf("preemption for agent %d at %v: %d actions", agentID, agentPos, len(actions))
	return decision
}

// ClearOverridesAfter 超时解除全部接管
// 功能：最近一次决策后静默超过timeout时，恢复所有信号灯的自动模式
// 参数：timeout-静默超时（秒）
// 说明：幂等，可每步调用；无决策历史时无副作用；
// 比较取严格大于，恰好等于超时的静默不触发解除
func (c *Controller) ClearOverridesAfter(timeout float64) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if len(c.decisions) == 0 {
		return
	}
	if c.ctx.Clock().T-c.lastDecisionTime <= timeout {
		return
	}
	signals := c.ctx.SignalManager()
	cleared := 0
	for _, pos := range signals.Positions() {
		s, _ := signals.Get(pos)
		if s.Overridden() {
			s.ClearOverride()
			cleared++
		}
	}
	if cleared > 0 {
		log.Debugf("override timeout, %d signals resumed", cleared)
	}
}

// PhaseAt 一致读取指定路口的相位
// 参数：pos-路口坐标
// 返回：相位与该坐标是否为信号灯路口
// 说明：与决策路径互斥，读取结果要么在某次接管之前、要么在其后，
// 不会落在动作集中间
func (c *Controller) PhaseAt(pos entity.Position) (entity.PhaseState, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	s, ok := c.ctx.SignalManager().Get(pos)
	if !ok {
		return "", false
	}
	return s.Phase(), true
}

// Decisions 获取全部决策日志
func (c *Controller) Decisions() []*entity.Decision {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.decisions
}

// DecisionsSince 获取第n条之后新增的决策
// 参数：n-已消费的决策数
func (c *Controller) DecisionsSince(n int) []*entity.Decision {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if n < 0 || n >= len(c.decisions) {
		return nil
	}
	return c.decisions[n:]
}

// LastDecisionTime 获取最近一次决策时刻，无决策时为-1
func (c *Controller) LastDecisionTime() float64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.lastDecisionTime
}
