package controller

import (
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/container"
)

// neighborOffsets 四邻域扩展偏移
// 说明：扩展顺序固定（+x，-x，+y，-y），保证同一路网下规划结果唯一
var neighborOffsets = [4]entity.Position{
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 0, Y: 1},
	{X: 0, Y: -1},
}

// passable 格点是否可通行
func passable(grid entity.IGridState, pos entity.Position) bool {
	return grid.InGrid(pos) && grid.Kind(pos) != entity.CellBlock
}

// reconstruct 沿前驱映射回溯出start到goal的路径
func reconstruct(cameFrom map[entity.Position]entity.Position, start, goal entity.Position) []entity.Position {
	path := []entity.Position{goal}
	for cur := goal; cur != start; {
		cur = cameFrom[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// bfsPlanner 无权最短路规划器
// 功能：在四邻域上做广度优先搜索，返回跳数最短的路径
// 说明：扩展顺序固定，结果确定；目标不可达时返回[start]
type bfsPlanner struct {
	grid entity.IGridState
}

// ComputeRoute 计算start到goal的路径
// 返回：首元素为start、末元素为goal的格点序列；不可达时为[start]
func (p *bfsPlanner) ComputeRoute(start, goal entity.Position) []entity.Position {
	if start == goal {
		return []entity.Position{start}
	}
	cameFrom := map[entity.Position]entity.Position{start: start}
	frontier := []entity.Position{start}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for _, d := range neighborOffsets {
			next := entity.Position{X: cur.X + d.X, Y: cur.Y + d.Y}
			if _, visited := cameFrom[next]; visited || !passable(p.grid, next) {
				continue
			}
			cameFrom[next] = cur
			if next == goal {
				return reconstruct(cameFrom, start, goal)
			}
			frontier = append(frontier, next)
		}
	}
	return []entity.Position{start}
}

// congestionPlanner 拥堵感知规划器
// 功能：以逐格点估算通行时间为边权做一致代价搜索，绕开高排队区域
// 说明：边权即进入目标格点的通行时间（与ETA预测同一模型，不含抖动），
// 恒为正，故搜索等价于Dijkstra；目标不可达时返回[start]
type congestionPlanner struct {
	grid entity.IGridState

	cellTravelTime float64
	minSpeedRatio  float64
}

// ComputeRoute 计算start到goal的最小通行时间路径
func (p *congestionPlanner) ComputeRoute(start, goal entity.Position) []entity.Position {
	if start == goal {
		return []entity.Position{start}
	}
	cameFrom := map[entity.Position]entity.Position{start: start}
	cost := map[entity.Position]float64{start: 0}
	frontier := container.NewPriorityQueue[entity.Position]()
	frontier.HeapPush(start, 0)
	for frontier.Len() > 0 {
		cur, curCost := frontier.HeapPop()
		if cur == goal {
			return reconstruct(cameFrom, start, goal)
		}
		if curCost > cost[cur] {
			continue // 过期的队列项
		}
		for _, d := range neighborOffsets {
			next := entity.Position{X: cur.X + d.X, Y: cur.Y + d.Y}
			if !passable(p.grid, next) {
				continue
			}
			nextCost := curCost + p.stepCost(next)
			if known, visited := cost[next]; !visited || nextCost < known {
				cost[next] = nextCost
				cameFrom[next] = cur
				frontier.HeapPush(next, nextCost)
			}
		}
	}
	return []entity.Position{start}
}

// stepCost 进入指定格点的通行时间
func (p *congestionPlanner) stepCost(pos entity.Position) float64 {
	ratio := p.grid.EstimatedSpeed(pos) / p.grid.BaseSpeed()
	if ratio < p.minSpeedRatio {
		ratio = p.minSpeedRatio
	}
	return p.cellTravelTime / ratio
}
