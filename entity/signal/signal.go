package signal

import (
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity"
)

// log 信号灯模块的日志记录器
var log = logrus.WithField("module", "signal")

// Signal 信号灯
// 功能：维护单个路口的相位状态机，在自动与接管两种模式间切换
// 说明：自动模式下相位由固定时长计时器驱动（绿红交替）；
// 接管模式下计时器冻结，相位只由控制中心写入；
// 相位的任何变化（计时器翻转或接管写入）都计入切换次数
type Signal struct {
	pos entity.Position

	phase      entity.PhaseState
	remaining  float64 // 当前相位窗口剩余时间（接管时无意义）
	overridden bool
	switches   int32

	greenDuration float64
	redDuration   float64
}

// newSignal 创建信号灯
// 功能：初始化一个处于红灯相位起点的信号灯
// 参数：pos-路口坐标，greenDuration/redDuration-两相位时长
// 返回：初始化完成的信号灯实例
func newSignal(pos entity.Position, greenDuration, redDuration float64) *Signal {
	return &Signal{
		pos:           pos,
		phase:         entity.PhaseRed,
		remaining:     redDuration,
		greenDuration: greenDuration,
		redDuration:   redDuration,
	}
}

func (s *Signal) Position() entity.Position {
	return s.pos
}

func (s *Signal) Phase() entity.PhaseState {
	return s.phase
}

func (s *Signal) Overridden() bool {
	return s.overridden
}

func (s *Signal) Switches() int32 {
	return s.switches
}

// Remaining 获取当前相位剩余时间
// 说明：仅在自动模式下有意义
func (s *Signal) Remaining() float64 {
	return s.remaining
}

// update 推进相位计时器
// 功能：自动模式下扣减剩余时间，归零时翻转相位并开启新窗口
// 参数：dt-时间步长（秒）
// 说明：接管模式下计时器冻结，本方法无副作用；
// 翻转时计时器重置为新相位的完整窗口，本步未用完的残量不结转
func (s *Signal) update(dt float64) {
	if s.overridden {
		return
	}
	s.remaining -= dt
	if s.remaining <= 0 {
		if s.phase == entity.PhaseGreen {
			s.phase = entity.PhaseRed
			s.remaining = s.redDuration
		} else {
			s.phase = entity.PhaseGreen
			s.remaining = s.greenDuration
		}
		s.switches++
	}
}

// SetGreen 强制置绿并接管
// 说明：仅限控制中心调用；相位实际变化时才计入切换
func (s *Signal) SetGreen() {
	s.force(entity.PhaseGreen)
}

// SetRed 强制置红并接管
// 说明：仅限控制中心调用；相位实际变化时才计入切换
func (s *Signal) SetRed() {
	s.force(entity.PhaseRed)
}

func (s *Signal) force(phase entity.PhaseState) {
	if s.phase != phase {
		s.phase = phase
		s.switches++
	}
	s.overridden = true
}

// ClearOverride 解除接管
// 功能：恢复自动模式，计时器从当前相位的完整窗口重新开始
// 说明：幂等，未被接管时无副作用
func (s *Signal) ClearOverride() {
	if !s.overridden {
		return
	}
	s.overridden = false
	if s.phase == entity.PhaseGreen {
		s.remaining = s.greenDuration
	} else {
		s.remaining = s.redDuration
	}
	log.Debugf("signal %v override cleared, resume %s", s.pos, s.phase)
}
