package agent

import (
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/randengine"
)

// log 应急车辆模块的日志记录器
var log = logrus.WithField("module", "agent")

// Agent 应急车辆
// 功能：沿规划路径向目标推进，ETA恶化时向控制中心请求信号接管
// 说明：只读取路网与信号相位，从不直接写入信号；
// 对排队的唯一写入是移动时的护送排出；
// 目标不可达时进入永久受阻状态（可观测，非错误）
type Agent struct {
	ctx entity.ITaskContext

	id    int32
	goal  entity.Position
	pos   entity.Position
	path  []entity.Position
	index int // 当前位置在path中的下标

	completed bool
	stuck     bool

	travelTime   float64
	blockingTime float64

	replanProb float64
	etaHorizon float64
	lookahead  int32
	moveDrain  int32
	severity   int32

	generator *randengine.Engine
}

// newAgent 创建应急车辆
// 功能：规划初始路径并初始化运行时状态
// 参数：ctx-任务上下文，id-车辆编号，start/goal-起止格点，seed-本车随机数种子
// 返回：初始化完成的车辆实例
// 说明：规划返回单元素路径且起止不同，说明目标不可达，车辆直接标记受阻
func newAgent(ctx entity.ITaskContext, id int32, start, goal entity.Position, seed uint64) *Agent {
	cfg := ctx.RuntimeConfig().All.Agent
	a := &Agent{
		ctx:        ctx,
		id:         id,
		goal:       goal,
		pos:        start,
		replanProb: cfg.ReplanProb,
		etaHorizon: cfg.EtaHorizon,
		lookahead:  cfg.Lookahead,
		moveDrain:  cfg.MoveDrain,
		severity:   cfg.SeverityDefault,
		generator:  randengine.New(seed),
	}
	a.path = ctx.Controller().ComputeRoute(start, goal)
	a.index = 0
	if len(a.path) == 1 && start != goal {
		a.stuck = true
		log.Warnf("agent %d: goal %v unreachable from %v", id, goal, start)
	}
	a.completed = start == goal
	return a
}

func (a *Agent) ID() int32 {
	return a.id
}

func (a *Agent) Position() entity.Position {
	return a.pos
}

func (a *Agent) Goal() entity.Position {
	return a.goal
}

func (a *Agent) Path() []entity.Position {
	return a.path
}

func (a *Agent) Completed() bool {
	return a.completed
}

func (a *Agent) Stuck() bool {
	return a.stuck
}

// Runtime 获取车辆运行时快照
func (a *Agent) Runtime() entity.AgentRuntime {
	return entity.AgentRuntime{
		ID:           a.id,
		Position:     a.pos,
		TravelTime:   a.travelTime,
		BlockingTime: a.blockingTime,
		Completed:    a.completed,
		Stuck:        a.stuck,
	}
}

// update 推进车辆一步
// 功能：重规划、ETA评估与接管请求、受阻判定与随机移动
// 参数：dt-时间步长（秒）
// 算法说明：
// 1. 以replan_prob重规划路径（拥堵变化后寻找更优走廊）
// 2. 目标不可达时本步计为受阻并保持永久受阻状态
// 3. 对前方lookahead个格点预测ETA，低于预测视界（抵达在即）时
//    请求信号接管，走廊取自当前位置起的剩余路径
// 4. 下一跳为红灯信号路口或阻断格点时本步受阻
// 5. 否则以当前格点的速度比为概率移动，移动时护送排出当前格点排队
// 说明：到达目标立即标记完成，完成后不再计时
func (a *Agent) update(dt float64) {
	if a.completed {
		return
	}
	a.travelTime += dt

	// 随机重规划
	if a.replanProb > 0 && a.generator.PTrue(a.replanProb) {
		a.path = a.ctx.Controller().ComputeRoute(a.pos, a.goal)
		a.index = 0
	}

	if len(a.path) == 1 && a.pos != a.goal {
		a.stuck = true
		a.blockingTime += dt
		return
	}

	remaining := a.path[a.index:]
	a.maybeRequestPreemption(remaining)

	if a.index+1 >= len(a.path) {
		// 路径耗尽但未到目标，等待下次重规划
		a.blockingTime += dt
		return
	}
	next := a.path[a.index+1]

	grid := a.ctx.Grid()
	if grid.Kind(next) == entity.CellBlock {
		a.blockingTime += dt
		return
	}
	if phase, ok := a.ctx.Controller().PhaseAt(next); ok && phase == entity.PhaseRed {
		a.blockingTime += dt
		return
	}

	// 以所在格点的拥堵程度决定能否前进
	pMove := grid.EstimatedSpeed(a.pos) / grid.BaseSpeed()
	if !a.generator.PTrue(pMove) {
		a.blockingTime += dt
		return
	}
	grid.Drain(a.pos, a.moveDrain) // 护送排出，为驶离让出空间
	a.index++
	a.pos = next
	if a.pos == a.goal {
		a.completed = true
		log.Infof("agent %d arrived at %v, travel=%.1fs blocked=%.1fs",
			a.id, a.goal, a.travelTime, a.blockingTime)
	}
}

// maybeRequestPreemption 按需请求信号接管
// 功能：对前方lookahead个格点预测ETA，低于预测视界时发起接管请求
// 参数：remaining-自当前位置起的剩余路径
// 说明：视界是请求接管的ETA上限，预计抵达在即才值得清空走廊
func (a *Agent) maybeRequestPreemption(remaining []entity.Position) {
	if len(remaining) < 2 {
		return
	}
	segment := remaining[1:]
	if int32(len(segment)) > a.lookahead {
		segment = segment[:a.lookahead]
	}
	eta := a.ctx.Controller().PredictETA(segment)
	if eta < a.etaHorizon {
		a.ctx.Controller().IssuePreemption(a.id, a.pos, remaining, a.severity)
	}
}
