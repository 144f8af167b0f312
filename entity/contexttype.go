package entity

import (
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/clock"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/config"
)

// ITaskContext 仿真任务上下文接口
// 说明：各组件通过它访问时钟、配置与其他组件，避免包间直接依赖
type ITaskContext interface {
	Clock() *clock.Clock
	RuntimeConfig() *config.RuntimeConfig

	Grid() IGridState
	SignalManager() ISignalManager
	Controller() ISignalController
	AgentManager() IAgentManager
}
