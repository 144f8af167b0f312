package config

// ControlStep 指定模拟器模拟时间范围和间隔的配置项
// 功能：定义仿真时间控制参数
// 说明：控制仿真的时间范围、步长和精度
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔（秒）
}

// Control 模拟器控制配置
// 功能：定义仿真系统的核心控制参数
type Control struct {
	Step ControlStep `yaml:"step"`
	Seed uint64      `yaml:"seed"` // 全局随机数种子，各组件的引擎由它派生
}

// CellPosition YAML中的格点坐标
type CellPosition struct {
	X int32 `yaml:"x"`
	Y int32 `yaml:"y"`
}

// RandomLayout 随机布局生成配置
// 功能：按概率生成各类格点，代替显式布局
// 说明：三个概率之和不得超过1，剩余概率为普通道路
type RandomLayout struct {
	PSignal float64 `yaml:"p_signal"` // 信号灯格点概率
	PBlock  float64 `yaml:"p_block"`  // 阻断格点概率
	PHeavy  float64 `yaml:"p_heavy"`  // 重流量发生器格点概率
}

// Layout 布局配置，rows与random二选一
// 功能：定义路网布局的来源
// 说明：rows为显式布局，每行一个字符串，字符R/S/B/H分别表示
// 道路/信号灯/阻断/重流量发生器；random为随机生成
type Layout struct {
	Rows   []string      `yaml:"rows,omitempty"`
	Random *RandomLayout `yaml:"random,omitempty"`
}

// Grid 路网格点与排队动力学配置
type Grid struct {
	Width            int32   `yaml:"width"`             // 格点列数
	Height           int32   `yaml:"height"`            // 格点行数
	Capacity         int32   `yaml:"capacity"`          // 单格点排队容量上限
	BaseSpeed        float64 `yaml:"base_speed"`        // 无排队时的标称速度（m/s）
	CongestionFactor float64 `yaml:"congestion_factor"` // 速度模型系数k：v=base/(1+k*q)
	LambdaBase       float64 `yaml:"lambda_base"`       // 普通格点泊松到达率
	LambdaHeavy      float64 `yaml:"lambda_heavy"`      // 重流量格点泊松到达率
	Layout           Layout  `yaml:"layout"`
}

// Signal 信号灯配置
type Signal struct {
	GreenDuration float64 `yaml:"green_duration"` // 绿灯时长（秒）
	RedDuration   float64 `yaml:"red_duration"`   // 红灯时长（秒）
	DrainAtGreen  int32   `yaml:"drain_at_green"` // 绿灯每步放行车辆数
}

// Controller 控制中心配置
type Controller struct {
	DecisionLatency float64 `yaml:"decision_latency"` // 决策时延常数（秒）
	EtaJitter       float64 `yaml:"eta_jitter"`       // ETA预测抖动上界（秒）
	CellTravelTime  float64 `yaml:"cell_travel_time"` // 无拥堵时单格点通行时间（秒）
	MinSpeedRatio   float64 `yaml:"min_speed_ratio"`  // 速度比下限，避免ETA发散
	OverrideTimeout float64 `yaml:"override_timeout"` // 决策后清除接管的超时（秒）
	PreemptRadius   int32   `yaml:"preempt_radius"`   // 下一跳周边置红的曼哈顿半径
	Planner         string  `yaml:"planner"`          // 路径规划器：bfs（默认）|congestion
}

// AgentSpec 单个应急车辆的起止配置
type AgentSpec struct {
	Start CellPosition `yaml:"start"`
	Goal  CellPosition `yaml:"goal"`
}

// Agent 应急车辆行为配置
type Agent struct {
	Agents           []AgentSpec `yaml:"agents"`            // 车辆起止列表（至少一个）
	ReplanProb       float64     `yaml:"replan_prob"`       // 每步重规划概率
	EtaHorizon       float64     `yaml:"eta_horizon"`       // 请求信号接管的ETA上限（秒），预测ETA低于它才请求
	Lookahead        int32       `yaml:"lookahead"`         // ETA预测的前瞻格点数
	MoveDrain        int32       `yaml:"move_drain"`        // 移动时从当前格点排出的车辆数
	SeverityDefault  int32       `yaml:"severity"`          // 默认优先级
}

// MongoOutput MongoDB运行记录输出配置
type MongoOutput struct {
	URI string `yaml:"uri"` // 连接字符串，为空则禁用
	DB  string `yaml:"db"`  // 数据库名
	Col string `yaml:"col"` // 集合名
}

// StreamOutput WebSocket快照流输出配置
type StreamOutput struct {
	Addr string `yaml:"addr"` // 监听地址（如:8080），为空则禁用
}

// Output 输出配置
// 说明：两类输出均为可选，供外部GUI/报表协作程序消费
type Output struct {
	Mongo  MongoOutput  `yaml:"mongo,omitempty"`
	Stream StreamOutput `yaml:"stream,omitempty"`
}

// Config YAML配置文件的根结构
// 功能：定义整个仿真系统的配置结构
type Config struct {
	Control    Control    `yaml:"control"`    // 模拟过程控制
	Grid       Grid       `yaml:"grid"`       // 路网与排队
	Signal     Signal     `yaml:"signal"`     // 信号灯
	Controller Controller `yaml:"controller"` // 控制中心
	Agent      Agent      `yaml:"agent"`      // 应急车辆
	Output     Output     `yaml:"output"`     // 输出
}
