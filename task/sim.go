package task

import (
	"flag"

	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 功能：在每个仿真步骤开始时进行准备工作
// 算法说明：
// 1. 更新时钟：增加内部步数并计算当前时间
// 2. 心跳日志：定期输出系统状态信息
// 3. 车辆管理器：将运行中派发的车辆并入主数组
func (ctx *Context) prepare() {
	ctx.clock.InternalStep++
	ctx.clock.T = float64(ctx.clock.InternalStep) * ctx.clock.DT

	if ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		log.Infof(
			"STEP: %d(%s) queue=%d decisions=%d",
			ctx.clock.InternalStep, ctx.clock,
			ctx.grid.TotalQueue(), len(ctx.controller.Decisions()),
		)
	}

	ctx.agentManager.PrepareNode()
}

// update 更新阶段，每步执行一次
// 功能：在每个仿真步骤中执行主要的仿真逻辑
// 算法说明：
// 1. 随机到达：为全路网注入泊松到达，超限截断
// 2. 传感器采样：控制中心拉取全量路口观测
// 3. 接管超时：最近决策后静默超时则恢复信号自动模式
// 4. 车辆推进：重规划、接管请求、受阻判定与移动
// 5. 绿灯放行：处于绿灯的信号路口排出额定车辆
// 6. 相位计时：推进所有未被接管的信号灯计时器
// 7. 指标累计与快照输出
// 说明：顺序固定，同一种子下逐步状态可精确复现
func (ctx *Context) update() {
	cfg := ctx.runtimeConfig.All

	ctx.grid.ApplyArrivals()
	ctx.controller.PollSensors()
	ctx.controller.ClearOverridesAfter(cfg.Controller.OverrideTimeout)
	ctx.agentManager.Update(ctx.clock.DT)

	for _, pos := range ctx.signalManager.Positions() {
		s, _ := ctx.signalManager.Get(pos)
		if s.Phase() == entity.PhaseGreen {
			ctx.grid.Drain(pos, cfg.Signal.DrainAtGreen)
		}
	}
	ctx.signalManager.Update(ctx.clock.DT)

	ctx.totalDelay += float64(ctx.grid.TotalQueue())
	ctx.ticksRun++
	ctx.emit()
}

// emit 输出本步快照
// 功能：组装全量快照并推送到已启用的输出通道
// 说明：快照只含本步新增的决策，决策全量日志由控制中心持有
func (ctx *Context) emit() {
	if ctx.streamer == nil && ctx.recorder == nil {
		return
	}
	decisions := ctx.controller.DecisionsSince(ctx.decisionsEmitted)
	ctx.decisionsEmitted += len(decisions)
	snapshot := &entity.TickSnapshot{
		Step:      ctx.clock.InternalStep,
		Time:      ctx.clock.T,
		Queues:    ctx.grid.QueueSnapshot(),
		Signals:   ctx.signalManager.Snapshot(),
		Agents:    ctx.agentManager.Runtimes(),
		Decisions: decisions,
	}
	ctx.streamer.Broadcast(snapshot)
	ctx.recorder.Write(snapshot)
}

// Run 运行
// 功能：执行仿真主循环直至步数耗尽或全部车辆到达
// 返回：本次运行的聚合指标
func (ctx *Context) Run() *entity.RunMetrics {
	for {
		ctx.prepare()
		ctx.update()
		if ctx.clock.InternalStep >= ctx.clock.END_STEP ||
			ctx.agentManager.AllCompleted() || ctx.closed.Load() {
			break
		}
	}
	metrics := ctx.Metrics()
	ctx.recorder.WriteMetrics(metrics)
	log.Infof("run complete: %d ticks, arrival_success=%v, throughput=%d, switches=%d",
		metrics.TicksRun, metrics.ArrivalSuccess, metrics.Throughput, metrics.Switches)
	return metrics
}

// Metrics 获取当前时刻的聚合指标
func (ctx *Context) Metrics() *entity.RunMetrics {
	avgDelay := 0.0
	if ctx.ticksRun > 0 {
		avgDelay = ctx.totalDelay / float64(ctx.ticksRun)
	}
	return &entity.RunMetrics{
		TravelTime:     ctx.agentManager.TotalTravelTime(),
		BlockingTime:   ctx.agentManager.TotalBlockingTime(),
		AvgQueue:       ctx.grid.AvgQueue(),
		AvgDelay:       avgDelay,
		Spillbacks:     ctx.grid.Spillbacks(),
		Switches:       ctx.signalManager.TotalSwitches(),
		Throughput:     ctx.grid.Throughput(),
		Decisions:      int32(len(ctx.controller.Decisions())),
		ArrivalSuccess: ctx.agentManager.AllCompleted(),
		TicksRun:       ctx.ticksRun,
	}
}
