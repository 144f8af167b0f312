package signal

import (
	"git.fiblab.net/general/common/v2/mathutil"
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity"
)

// Manager 信号灯管理器
// 功能：持有全部信号灯与传感器，驱动计时器并提供全量采样
// 说明：信号灯按行优先顺序排列，所有遍历顺序确定；
// 采样与计时器推进不涉及随机数，允许并行扇出
type Manager struct {
	ctx entity.ITaskContext

	signals   []*Signal
	signalMap map[entity.Position]*Signal
	sensors   []*Sensor
}

// NewManager 创建信号灯管理器
// 功能：在路网的每个信号灯格点上创建一盏信号灯与一个传感器
// 参数：ctx-任务上下文
// 返回：初始化完成的管理器实例
func NewManager(ctx entity.ITaskContext) *Manager {
	cfg := ctx.RuntimeConfig().All.Signal
	positions := ctx.Grid().CellsOfKind(entity.CellSignal)
	m := &Manager{
		ctx:       ctx,
		signals:   make([]*Signal, 0, len(positions)),
		signalMap: make(map[entity.Position]*Signal, len(positions)),
		sensors:   make([]*Sensor, 0, len(positions)),
	}
	for _, pos := range positions {
		s := newSignal(pos, cfg.GreenDuration, cfg.RedDuration)
		m.signals = append(m.signals, s)
		m.signalMap[pos] = s
		m.sensors = append(m.sensors, newSensor(ctx, pos))
	}
	log.Debugf("signal manager initialized with %d signals", len(m.signals))
	return m
}

// Get 按坐标获取信号灯
func (m *Manager) Get(pos entity.Position) (entity.ISignal, bool) {
	s, ok := m.signalMap[pos]
	return s, ok
}

// Positions 按行优先顺序返回全部信号灯位置
func (m *Manager) Positions() []entity.Position {
	return lo.Map(m.signals, func(s *Signal, _ int) entity.Position {
		return s.pos
	})
}

func (m *Manager) Count() int {
	return len(m.signals)
}

// Sample 全量传感器采样
// 参数：t-采样时刻（仿真秒）
// 返回：按行优先顺序排列的传感器报告
func (m *Manager) Sample(t float64) []entity.SensorReading {
	return parallel.GoMap(m.sensors, func(s *Sensor) entity.SensorReading {
		return s.Sample(t)
	})
}

// Update 推进全部信号灯的相位计时器
// 参数：dt-时间步长（秒）
// 说明：被接管的信号灯计时器冻结，跳过推进
func (m *Manager) Update(dt float64) {
	parallel.GoFor(m.signals, func(s *Signal) { s.update(dt) })
}

// Snapshot 获取全部信号灯的状态快照
// 说明：被接管的信号灯剩余时间标记为INF
func (m *Manager) Snapshot() []entity.SignalState {
	return lo.Map(m.signals, func(s *Signal, _ int) entity.SignalState {
		remaining := s.remaining
		if s.overridden {
			remaining = mathutil.INF
		}
		return entity.SignalState{
			Position:      s.pos,
			Phase:         s.phase,
			Override:      s.overridden,
			RemainingTime: remaining,
			Switches:      s.switches,
		}
	})
}

// TotalSwitches 获取全部信号灯的累计切换次数
func (m *Manager) TotalSwitches() int64 {
	return lo.SumBy(m.signals, func(s *Signal) int64 {
		return int64(s.switches)
	})
}
