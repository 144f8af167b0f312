package grid

import (
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/config"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/randengine"
)

// log 路网模块的日志记录器
var log = logrus.WithField("module", "grid")

// 显式布局中的格点字符到格点类型的映射
var cellKindByRune = map[rune]entity.CellKind{
	'R': entity.CellRoad,
	'S': entity.CellSignal,
	'B': entity.CellBlock,
	'H': entity.CellHeavy,
}

// 重流量格点与普通格点的初始排队区间
const (
	heavyInitQueueLow  = 6
	heavyInitQueueHigh = 12
	baseInitQueueLow   = 0
	baseInitQueueHigh  = 4
)

// GridState 路网状态
// 功能：持有格点布局与逐格点排队，应用随机到达与有界排出
// 说明：布局在构造后不可变；排队只由本类型写入，每步只有一个写入方，
// 因此读写路径不加锁；容量截断只计入溢出指标，不视为错误
type GridState struct {
	ctx entity.ITaskContext

	width, height int32
	layout        map[entity.Position]entity.CellKind
	positions     []entity.Position // 行优先顺序，保证到达遍历的确定性

	queues    map[entity.Position]int32
	capacity  int32
	incidents map[entity.Position]string

	baseSpeed        float64
	congestionFactor float64
	lambdaBase       float64
	lambdaHeavy      float64

	spillbacks int64 // 容量截断事件计数
	throughput int64 // 累计放行车辆数

	generator *randengine.Engine
}

// New 创建路网状态
// 功能：根据配置构建布局（显式行或随机生成）、播种初始排队
// 参数：ctx-任务上下文，seed-本组件随机数种子
// 返回：初始化完成的路网状态实例
// 算法说明：
// 1. 显式布局：逐行解析R/S/B/H字符（起止格点的合法性在配置校验中保证）
// 2. 随机布局：按(p_signal, p_block, p_heavy)逐格点抽样，
//    随后将车辆起止格点强制为普通道路，保证构造后可通行
// 3. 初始排队：重流量格点[6,12]，阻断格点0，其余[0,4]
func New(ctx entity.ITaskContext, seed uint64) *GridState {
	cfg := ctx.RuntimeConfig().All.Grid
	g := &GridState{
		ctx:              ctx,
		width:            cfg.Width,
		height:           cfg.Height,
		layout:           make(map[entity.Position]entity.CellKind),
		positions:        make([]entity.Position, 0, cfg.Width*cfg.Height),
		queues:           make(map[entity.Position]int32),
		capacity:         cfg.Capacity,
		incidents:        make(map[entity.Position]string),
		baseSpeed:        cfg.BaseSpeed,
		congestionFactor: cfg.CongestionFactor,
		lambdaBase:       cfg.LambdaBase,
		lambdaHeavy:      cfg.LambdaHeavy,
		generator:        randengine.New(seed),
	}

	for y := int32(0); y < g.height; y++ {
		for x := int32(0); x < g.width; x++ {
			pos := entity.Position{X: x, Y: y}
			g.positions = append(g.positions, pos)
			g.layout[pos] = g.rollKind(cfg.Layout, pos)
		}
	}

	// 随机布局可能把起止格点抽成阻断，改写为普通道路；
	// 显式布局按用户声明保留，阻断的起止格点已在配置校验中拒绝
	if cfg.Layout.Random != nil {
		for _, a := range ctx.RuntimeConfig().All.Agent.Agents {
			g.layout[entity.Position{X: a.Start.X, Y: a.Start.Y}] = entity.CellRoad
			g.layout[entity.Position{X: a.Goal.X, Y: a.Goal.Y}] = entity.CellRoad
		}
	}

	for _, pos := range g.positions {
		switch g.layout[pos] {
		case entity.CellBlock:
			g.queues[pos] = 0
		case entity.CellHeavy:
			g.queues[pos] = int32(g.generator.IntnRange(heavyInitQueueLow, heavyInitQueueHigh))
		default:
			g.queues[pos] = int32(g.generator.IntnRange(baseInitQueueLow, baseInitQueueHigh))
		}
	}

	log.Debugf("grid %dx%d built, %d signal cells", g.width, g.height, len(g.CellsOfKind(entity.CellSignal)))
	return g
}

// rollKind 确定单个格点的类型
func (g *GridState) rollKind(layout config.Layout, pos entity.Position) entity.CellKind {
	if len(layout.Rows) > 0 {
		return cellKindByRune[rune(layout.Rows[pos.Y][pos.X])]
	}
	r := g.generator.Float64()
	p := layout.Random
	switch {
	case r < p.PSignal:
		return entity.CellSignal
	case r < p.PSignal+p.PBlock:
		return entity.CellBlock
	case r < p.PSignal+p.PBlock+p.PHeavy:
		return entity.CellHeavy
	default:
		return entity.CellRoad
	}
}

func (g *GridState) Width() int32 {
	return g.width
}

func (g *GridState) Height() int32 {
	return g.height
}

// InGrid 检查坐标是否在路网范围内
func (g *GridState) InGrid(pos entity.Position) bool {
	return pos.X >= 0 && pos.X < g.width && pos.Y >= 0 && pos.Y < g.height
}

// Kind 获取格点类型
// 说明：未登记的格点按普通道路处理，不作为错误
func (g *GridState) Kind(pos entity.Position) entity.CellKind {
	if kind, ok := g.layout[pos]; ok {
		return kind
	}
	return entity.CellRoad
}

// CellsOfKind 按行优先顺序返回指定类型的格点
func (g *GridState) CellsOfKind(kind entity.CellKind) []entity.Position {
	return lo.Filter(g.positions, func(pos entity.Position, _ int) bool {
		return g.layout[pos] == kind
	})
}

// Queue 获取格点当前排队长度
func (g *GridState) Queue(pos entity.Position) int32 {
	return g.queues[pos]
}

// Queues 获取全量排队快照
// 返回：排队映射的副本，调用方可任意使用
func (g *GridState) Queues() map[entity.Position]int32 {
	out := make(map[entity.Position]int32, len(g.queues))
	for pos, q := range g.queues {
		out[pos] = q
	}
	return out
}

// QueueSnapshot 获取有序排队快照，用于每步输出
func (g *GridState) QueueSnapshot() []entity.QueueState {
	return lo.Map(g.positions, func(pos entity.Position, _ int) entity.QueueState {
		return entity.QueueState{Position: pos, Queue: g.queues[pos]}
	})
}

// TotalQueue 获取全路网排队总量
func (g *GridState) TotalQueue() int64 {
	return lo.SumBy(g.positions, func(pos entity.Position) int64 {
		return int64(g.queues[pos])
	})
}

// AvgQueue 获取全路网平均排队长度
func (g *GridState) AvgQueue() float64 {
	if len(g.positions) == 0 {
		return 0
	}
	return float64(g.TotalQueue()) / float64(len(g.positions))
}

// EstimatedSpeed 估算格点局部速度
// 功能：v = base/(1+k*q)，排队越长速度越低
// 说明：排队长度的纯函数，严格递减且以标称速度为上界
func (g *GridState) EstimatedSpeed(pos entity.Position) float64 {
	q := g.queues[pos]
	return g.baseSpeed / (1.0 + g.congestionFactor*float64(q))
}

// BaseSpeed 获取无排队时的标称速度
func (g *GridState) BaseSpeed() float64 {
	return g.baseSpeed
}

// ApplyArrivals 应用随机到达
// 功能：按泊松分布为每个非阻断格点生成到达量，超出容量的部分截断
// 算法说明：
// 1. 按行优先顺序遍历格点（遍历顺序固定，同种子可精确复现）
// 2. 重流量格点使用lambda_heavy，其余使用lambda_base
// 3. 到达后超出容量：截断到容量并将溢出事件计数加一
// 说明：阻断格点不产生到达，排队恒为0
func (g *GridState) ApplyArrivals() {
	for _, pos := range g.positions {
		kind := g.layout[pos]
		if kind == entity.CellBlock {
			continue
		}
		lambda := g.lambdaBase
		if kind == entity.CellHeavy {
			lambda = g.lambdaHeavy
		}
		q := g.queues[pos] + int32(g.generator.Poisson(lambda))
		if q > g.capacity {
			q = g.capacity
			g.spillbacks++
		}
		g.queues[pos] = q
	}
}

// Drain 有界排出
// 功能：从格点排出最多requested辆车，不会使排队为负
// 参数：pos-格点坐标，requested-期望排出数
// 返回：实际排出数（<=requested且<=当前排队）
// 说明：只影响本格点，实际排出数计入吞吐指标
func (g *GridState) Drain(pos entity.Position, requested int32) int32 {
	if requested <= 0 {
		return 0
	}
	available := g.queues[pos]
	actual := requested
	if actual > available {
		actual = available
	}
	g.queues[pos] = available - actual
	g.throughput += int64(actual)
	return actual
}

// ReportIncident 登记事件
// 功能：在事件覆盖层记录一条描述，传感器采样时上报
// 说明：只影响观测，不改变布局与通行性
func (g *GridState) ReportIncident(pos entity.Position, desc string) {
	g.incidents[pos] = desc
	log.Infof("incident reported at %v: %s", pos, desc)
}

// Incident 查询格点事件
func (g *GridState) Incident(pos entity.Position) (string, bool) {
	desc, ok := g.incidents[pos]
	return desc, ok
}

// Spillbacks 获取累计溢出事件数
func (g *GridState) Spillbacks() int64 {
	return g.spillbacks
}

// Throughput 获取累计放行车辆数
func (g *GridState) Throughput() int64 {
	return g.throughput
}
