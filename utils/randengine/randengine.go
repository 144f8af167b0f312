// 随机数引擎，包装了golang.org/x/exp/rand，提供仿真所需的各类随机数生成方法
package randengine

import (
	"flag"
	"math"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：提供仿真所需的随机数生成功能，支持泊松分布和伯努利试验
// 说明：基于golang.org/x/exp/rand库（PCG源），同一种子下序列可精确复现
type Engine struct {
	*rand.Rand // 底层随机数生成器
}

// New 创建随机数引擎
// 功能：初始化一个新的随机数引擎实例
// 参数：seed-随机数种子
// 返回：随机数引擎指针
// 说明：种子偏移量允许在不修改代码的情况下调整随机数序列
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// PTrue 以指定概率返回true（非线程安全）
// 功能：根据给定概率返回布尔值，实现伯努利试验
// 参数：p-返回true的概率（0.0到1.0之间）
// 返回：true或false
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}

// poissonLogSpaceThreshold Knuth乘积法的lambda上限
// 说明：lambda过大时exp(-lambda)下溢为0，乘积法不再收敛，改用对数域累加
const poissonLogSpaceThreshold = 30

// Poisson 按泊松分布生成随机数（非线程安全）
// 功能：生成参数为lambda的泊松分布随机整数，用于车辆到达模拟
// 参数：lambda-泊松分布的均值（lambda<=0时恒返回0）
// 返回：非负的随机计数
// 算法说明：
// 1. lambda较小时用Knuth乘积法：连乘均匀随机数直至乘积小于exp(-lambda)
// 2. lambda较大时在对数域累加指数间隔：-ln(U)之和首次越过lambda前的事件数
// 说明：两条路径对任意lambda都在有限步内返回，本仿真的到达率均在个位数量级
func (e *Engine) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	if lambda > poissonLogSpaceThreshold {
		k := 0
		for s := -math.Log(e.Float64()); s < lambda; s -= math.Log(e.Float64()) {
			k++
		}
		return k
	}
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= e.Float64()
		if p < l {
			return k
		}
		k++
	}
}

// UniformFloat64 生成[0, max)范围内的随机浮点数（非线程安全）
// 功能：生成有界的均匀随机数，用于ETA预测中的抖动项
// 参数：max-范围上限（不包含）
// 返回：[0, max)范围内的随机浮点数
func (e *Engine) UniformFloat64(max float64) float64 {
	return e.Float64() * max
}

// IntnRange 生成[low, high]范围内的随机整数（非线程安全）
// 功能：生成闭区间内的随机整数，用于初始排队量的播种
// 参数：low-下限，high-上限（含）
// 返回：[low, high]范围内的随机整数
func (e *Engine) IntnRange(low, high int) int {
	return low + e.Intn(high-low+1)
}
