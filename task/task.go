package task

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/clock"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity/agent"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity/controller"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity/grid"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity/signal"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/output"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/config"
)

// log 任务模块的日志记录器
var log = logrus.WithField("module", "task")

// 各组件随机数种子相对全局种子的偏移
// 说明：组件各持独立引擎，互不消耗对方的随机数序列，
// 同一全局种子下任何单组件的行为都可单独复现
const (
	seedOffsetGrid       = 0
	seedOffsetController = 1
	seedOffsetAgent      = 2
)

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有变量和状态，替代原来的全局变量
// 说明：管理仿真系统的所有组件，包括时钟、各管理器、配置与输出
type Context struct {

	// 任务名
	job string
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock

	// 运行时配置文件
	runtimeConfig *config.RuntimeConfig

	// 路网状态
	grid entity.IGridState
	// 信号灯管理器
	signalManager entity.ISignalManager
	// 控制中心
	controller entity.ISignalController
	// 应急车辆管理器
	agentManager entity.IAgentManager

	// 快照流服务（可选）
	streamer *output.Streamer
	// 运行记录器（可选）
	recorder *output.Recorder

	// 每步排队总量的累计，用于平均延误指标
	totalDelay float64
	// 实际运行步数
	ticksRun int32
	// 已输出的决策数，用于增量提取每步新增决策
	decisionsEmitted int
}

// NewContext 创建新的仿真任务上下文
// 功能：初始化仿真系统的所有组件和配置
// 参数：job-任务名称，c-配置对象
// 返回：初始化完成的Context实例
// 算法说明：
// 1. 创建时钟与运行时配置
// 2. 按依赖顺序创建组件：路网->信号灯->控制中心->车辆
//    （车辆创建时需要控制中心完成初始路径规划）
// 3. 各组件的随机数种子由全局种子加固定偏移派生
// 4. 按配置装配可选输出通道
func NewContext(job string, c config.Config) *Context {
	ctx := &Context{
		job:           job,
		clock:         clock.New(c.Control.Step),
		runtimeConfig: config.NewRuntimeConfig(c),
	}
	seed := c.Control.Seed
	ctx.grid = grid.New(ctx, seed+seedOffsetGrid)
	ctx.signalManager = signal.NewManager(ctx)
	ctx.controller = controller.New(ctx, seed+seedOffsetController)
	ctx.agentManager = agent.NewManager(ctx, seed+seedOffsetAgent)
	ctx.streamer = output.NewStreamer(c.Output.Stream)
	ctx.recorder = output.NewRecorder(c.Output.Mongo, job)
	log.Infof("context `%s` initialized: %dx%d grid, %d signals, %d agents",
		job, ctx.grid.Width(), ctx.grid.Height(),
		ctx.signalManager.Count(), len(ctx.agentManager.Runtimes()))
	return ctx
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) Grid() entity.IGridState {
	return ctx.grid
}

func (ctx *Context) SignalManager() entity.ISignalManager {
	return ctx.signalManager
}

func (ctx *Context) Controller() entity.ISignalController {
	return ctx.controller
}

func (ctx *Context) AgentManager() entity.IAgentManager {
	return ctx.agentManager
}

// SetClosed 发出关闭指令，运行循环在当前步结束后退出
func (ctx *Context) SetClosed() {
	ctx.closed.Store(true)
}

// Close 关闭任务上下文，释放输出通道
func (ctx *Context) Close() {
	ctx.streamer.Close()
	ctx.recorder.Close()
	log.Infof("context `%s` closed", ctx.job)
}
