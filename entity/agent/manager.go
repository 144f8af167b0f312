package agent

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/container"
)

// Manager 应急车辆管理器
// 功能：持有全部车辆，支持运行中派发并按固定顺序推进
// 说明：车辆更新涉及随机数与共享排队写入，按编号顺序串行推进，
// 保证同一种子下结果可精确复现；
// 新派发的车辆先进入暂存区，Prepare阶段并入主数组
type Manager struct {
	ctx entity.ITaskContext

	agents *container.IncrementalArray[*Agent]
	nextID int32
	seed   uint64
}

// NewManager 创建车辆管理器
// 功能：按配置派发初始车辆并立即并入主数组
// 参数：ctx-任务上下文，seed-车辆种子基数（第i辆车的种子为seed+i）
// 返回：初始化完成的管理器实例
func NewManager(ctx entity.ITaskContext, seed uint64) *Manager {
	m := &Manager{
		ctx:    ctx,
		agents: container.NewIncrementalArray[*Agent](),
		seed:   seed,
	}
	for _, spec := range ctx.RuntimeConfig().All.Agent.Agents {
		m.Dispatch(
			entity.Position{X: spec.Start.X, Y: spec.Start.Y},
			entity.Position{X: spec.Goal.X, Y: spec.Goal.Y},
		)
	}
	m.agents.Prepare()
	return m
}

// Get 按编号获取车辆
func (m *Manager) Get(id int32) (entity.IAgent, bool) {
	for _, a := range m.agents.Data() {
		if a.id == id {
			return a, true
		}
	}
	return nil, false
}

// Dispatch 派发新的应急车辆
// 功能：创建车辆并加入暂存区，下个Prepare阶段并入主数组
// 参数：start/goal-起止格点
// 返回：新创建的车辆
func (m *Manager) Dispatch(start, goal entity.Position) entity.IAgent {
	id := m.nextID
	m.nextID++
	a := newAgent(m.ctx, id, start, goal, m.seed+uint64(id))
	m.agents.Add(a)
	log.Infof("agent %d dispatched: %v -> %v (%d hops)", id, start, goal, len(a.path)-1)
	return a
}

// PrepareNode 准备阶段：将暂存区车辆并入主数组
func (m *Manager) PrepareNode() {
	m.agents.Prepare()
}

// Update 更新阶段：按编号顺序推进所有车辆
// 参数：dt-时间步长（秒）
func (m *Manager) Update(dt float64) {
	for _, a := range m.agents.Data() {
		a.update(dt)
	}
}

// Runtimes 获取全部车辆的运行时快照
func (m *Manager) Runtimes() []entity.AgentRuntime {
	return lo.Map(m.agents.Data(), func(a *Agent, _ int) entity.AgentRuntime {
		return a.Runtime()
	})
}

// AllCompleted 全部车辆是否到达目标
func (m *Manager) AllCompleted() bool {
	return lo.EveryBy(m.agents.Data(), func(a *Agent) bool {
		return a.completed
	})
}

// AnyStuck 是否存在永久受阻的车辆
func (m *Manager) AnyStuck() bool {
	return lo.SomeBy(m.agents.Data(), func(a *Agent) bool {
		return a.stuck
	})
}

// TotalTravelTime 全部车辆的行驶时间总和
func (m *Manager) TotalTravelTime() float64 {
	return lo.SumBy(m.agents.Data(), func(a *Agent) float64 {
		return a.travelTime
	})
}

// TotalBlockingTime 全部车辆的受阻时间总和
func (m *Manager) TotalBlockingTime() float64 {
	return lo.SumBy(m.agents.Data(), func(a *Agent) float64 {
		return a.blockingTime
	})
}
