package entity

import (
	"fmt"
)

// CellKind 格点类型
// 说明：布局在构造后不可变，未登记的格点一律按普通道路处理
type CellKind string

const (
	CellRoad   CellKind = "road"   // 普通道路
	CellSignal CellKind = "signal" // 信号灯路口
	CellBlock  CellKind = "block"  // 阻断（不可通行，不产生到达）
	CellHeavy  CellKind = "heavy"  // 重流量发生器
)

// PhaseState 信号灯相位
type PhaseState string

const (
	PhaseGreen PhaseState = "GREEN" // 绿灯
	PhaseRed   PhaseState = "RED"   // 红灯
)

// ActionKind 信号接管动作类型
type ActionKind string

const (
	ActionSetGreen ActionKind = "set_green" // 强制置绿
	ActionSetRed   ActionKind = "set_red"   // 强制置红
)

// Position 格点坐标，x为列，y为行
type Position struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// ManhattanDistance 计算到另一格点的曼哈顿距离
func (p Position) ManhattanDistance(o Position) int32 {
	return abs32(p.X-o.X) + abs32(p.Y-o.Y)
}

// Less 行优先的全序关系，用于保证格点遍历顺序确定
func (p Position) Less(o Position) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// SensorReading 传感器采样结果
// 说明：瞬时观测的不可变快照，采样只读不写，不修改任何源状态
type SensorReading struct {
	Position Position `json:"position"`           // 传感器所在路口
	Queue    int32    `json:"queue"`              // 当前排队长度
	Speed    float64  `json:"speed"`              // 由排队长度推算的局部速度
	Incident string   `json:"incident,omitempty"` // 事件描述，空串表示无事件
	Time     float64  `json:"time"`               // 采样时刻（仿真秒）
}

// HasIncident 采样时刻该路口是否有事件上报
func (r SensorReading) HasIncident() bool {
	return r.Incident != ""
}

// DecisionAction 决策中的单个信号动作
type DecisionAction struct {
	Kind     ActionKind `json:"kind"`
	Position Position   `json:"position"`
}

// Decision 信号接管决策日志记录
// 说明：追加后不可变，控制中心决策日志的唯一构成单元
type Decision struct {
	Time          float64          `json:"time"`           // 决策时刻（仿真秒）
	Step          int32            `json:"step"`           // 决策所在步
	AgentID       int32            `json:"agent_id"`       // 发起请求的车辆
	AgentPosition Position         `json:"agent_position"` // 决策时车辆位置
	Corridor      []Position       `json:"corridor"`       // 通行走廊（自车辆当前位置起）
	Actions       []DecisionAction `json:"actions"`        // 按执行顺序排列的信号动作
	Severity      int32            `json:"severity"`       // 优先级
}

// QueueState 单格点排队快照
type QueueState struct {
	Position Position `json:"position"`
	Queue    int32    `json:"queue"`
}

// SignalState 单信号灯快照
type SignalState struct {
	Position      Position   `json:"position"`
	Phase         PhaseState `json:"phase"`
	Override      bool       `json:"override"`
	RemainingTime float64    `json:"remaining_time"` // 当前相位剩余时间，被接管时为INF
	Switches      int32      `json:"switches"`       // 累计切换次数
}

// AgentRuntime 车辆运行时快照
type AgentRuntime struct {
	ID           int32    `json:"id"`
	Position     Position `json:"position"`
	TravelTime   float64  `json:"travel_time"`
	BlockingTime float64  `json:"blocking_time"`
	Completed    bool     `json:"completed"`
	Stuck        bool     `json:"stuck"` // 目标不可达导致的永久受阻（可观测状态，非错误）
}

// TickSnapshot 每步输出快照
// 说明：提供给外部GUI/报表协作程序消费的全量状态，本体不含任何文件格式约定
type TickSnapshot struct {
	Step      int32          `json:"step"`
	Time      float64        `json:"time"`
	Queues    []QueueState   `json:"queues"`
	Signals   []SignalState  `json:"signals"`
	Agents    []AgentRuntime `json:"agents"`
	Decisions []*Decision    `json:"decisions,omitempty"` // 本步新增的决策
}

// RunMetrics 单次运行的聚合指标
// 说明：运行结束时产出，供外部基准测试协作程序消费
type RunMetrics struct {
	TravelTime     float64 `json:"travel_time"`     // 车辆总行驶时间
	BlockingTime   float64 `json:"blocking_time"`   // 车辆总受阻时间
	AvgQueue       float64 `json:"avg_queue"`       // 结束时刻平均排队长度
	AvgDelay       float64 `json:"avg_delay"`       // 每步平均总延误（排队量的时间均值）
	Spillbacks     int64   `json:"spillbacks"`      // 排队溢出计数
	Switches       int64   `json:"switches"`        // 信号切换总次数
	Throughput     int64   `json:"throughput"`      // 累计放行车辆数
	Decisions      int32   `json:"decisions"`       // 决策总数
	ArrivalSuccess bool    `json:"arrival_success"` // 所有车辆是否到达
	TicksRun       int32   `json:"ticks_run"`       // 实际运行步数
}

// entity/grid/grid.go的依赖倒置
// 路网状态：排队存储的唯一持有者与唯一写入方
type IGridState interface {
	Width() int32
	Height() int32
	InGrid(pos Position) bool
	Kind(pos Position) CellKind          // 未登记格点按普通道路处理
	CellsOfKind(kind CellKind) []Position // 按行优先顺序返回指定类型的格点

	Queue(pos Position) int32
	Queues() map[Position]int32  // 全量排队快照（副本）
	QueueSnapshot() []QueueState // 有序排队快照，用于输出
	TotalQueue() int64
	AvgQueue() float64
	EstimatedSpeed(pos Position) float64 // base/(1+k*q)，随排队严格递减
	BaseSpeed() float64

	ApplyArrivals()                           // 随机到达，超限截断并计入溢出
	Drain(pos Position, requested int32) int32 // 有界排出，返回实际排出数

	ReportIncident(pos Position, desc string) // 登记事件（布局本身不变）
	Incident(pos Position) (string, bool)

	Spillbacks() int64
	Throughput() int64
}

// entity/signal/signal.go的依赖倒置
// 信号灯：相位只由自身计时器（AUTO）或控制中心（OVERRIDDEN）写入
type ISignal interface {
	Position() Position
	Phase() PhaseState
	Overridden() bool
	Switches() int32
	Remaining() float64

	// 以下三个写入仅限控制中心调用
	SetGreen()      // 置绿并接管，冻结计时器
	SetRed()        // 置红并接管，冻结计时器
	ClearOverride() // 解除接管，计时器从新窗口恢复
}

// entity/signal/manager.go的依赖倒置
type ISignalManager interface {
	Get(pos Position) (ISignal, bool)
	Positions() []Position // 按行优先排序的全部信号灯位置
	Count() int

	Sample(t float64) []SensorReading // 全量传感器采样
	Update(dt float64)                // 计时器推进（被接管的信号灯跳过）

	Snapshot() []SignalState
	TotalSwitches() int64
}

// 路径规划器接口
// 说明：缺省实现为固定扩展顺序的无权最短路，可替换为拥堵感知实现
type IRoutePlanner interface {
	// 计算start到goal的路径；目标不可达时返回[start]
	ComputeRoute(start, goal Position) []Position
}

// entity/controller/controller.go的依赖倒置
// 控制中心：信号接管决策的唯一发起方，决策路径全部串行化
type ISignalController interface {
	IRoutePlanner

	PollSensors() []SensorReading // 拉取全量传感器报告
	Readings() []SensorReading    // 最近一次采样结果

	// ETA预测：对路径片段逐格点累加通行时间，加决策时延与有界抖动
	PredictETA(segment []Position) float64

	// 信号接管：下一跳置绿，周边置红，记录决策（原子、串行）
	IssuePreemption(agentID int32, agentPos Position, corridor []Position, severity int32) *Decision
	// 超时解除接管：幂等，可每步调用
	ClearOverridesAfter(timeout float64)

	// 一致读：供车辆判断下一格点是否红灯，不会观测到写了一半的走廊
	PhaseAt(pos Position) (PhaseState, bool)

	Decisions() []*Decision
	DecisionsSince(n int) []*Decision
	LastDecisionTime() float64
}

// entity/agent/agent.go的依赖倒置
type IAgent interface {
	ID() int32
	Position() Position
	Goal() Position
	Path() []Position
	Completed() bool
	Stuck() bool
	Runtime() AgentRuntime
}

// entity/agent/manager.go的依赖倒置
type IAgentManager interface {
	Get(id int32) (IAgent, bool)
	Dispatch(start, goal Position) IAgent // 派发新的应急车辆（Prepare后加入主数组）

	PrepareNode()     // 准备阶段：并入新派发的车辆
	Update(dt float64) // 更新阶段：按固定顺序推进所有车辆

	Runtimes() []AgentRuntime
	AllCompleted() bool
	AnyStuck() bool
	TotalTravelTime() float64
	TotalBlockingTime() float64
}
