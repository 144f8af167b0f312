package signal

import (
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity"
)

// Sensor 路口传感器
// 功能：采样所在路口的排队、推算速度与事件上报
// 说明：采样是只读操作，产生瞬时观测快照，不修改任何源状态
type Sensor struct {
	ctx entity.ITaskContext
	pos entity.Position
}

// newSensor 创建传感器
// 参数：ctx-任务上下文，pos-传感器所在路口坐标
func newSensor(ctx entity.ITaskContext, pos entity.Position) *Sensor {
	return &Sensor{ctx: ctx, pos: pos}
}

// Sample 采样当前路口状态
// 参数：t-采样时刻（仿真秒）
// 返回：包含排队长度、局部速度与事件描述的不可变观测
func (s *Sensor) Sample(t float64) entity.SensorReading {
	grid := s.ctx.Grid()
	incident, _ := grid.Incident(s.pos)
	return entity.SensorReading{
		Position: s.pos,
		Queue:    grid.Queue(s.pos),
		Speed:    grid.EstimatedSpeed(s.pos),
		Incident: incident,
		Time:     t,
	}
}
