package container

import "sync"

// IncrementalArray 增量数组
// 功能：支持并发安全的延迟插入，在Prepare时统一并入主数组
// 说明：车辆管理器用它承接运行中派发的应急车辆，主数组只在
// 每步的准备阶段变化，更新阶段对主数组的遍历因此无需加锁
type IncrementalArray[T any] struct {
	data     []T        // 主数据数组
	add      []T        // 待添加的元素列表
	addMutex sync.Mutex // 添加操作的互斥锁
}

// NewIncrementalArray 创建增量数组
func NewIncrementalArray[T any]() *IncrementalArray[T] {
	return &IncrementalArray[T]{
		data: make([]T, 0),
		add:  make([]T, 0),
	}
}

// Len 获取主数组当前长度
func (a *IncrementalArray[T]) Len() int {
	return len(a.data)
}

// Data 获取主数组
// 说明：返回的是已应用全部增量操作的数据，调用方不得修改
func (a *IncrementalArray[T]) Data() []T {
	return a.data
}

// Add 增加元素（等到Prepare时才会真正并入主数组）
func (a *IncrementalArray[T]) Add(value T) {
	a.addMutex.Lock()
	defer a.addMutex.Unlock()
	a.add = append(a.add, value)
}

// Prepare 执行增量操作
// 功能：将待添加列表并入主数组并清空
func (a *IncrementalArray[T]) Prepare() {
	a.addMutex.Lock()
	defer a.addMutex.Unlock()
	a.data = append(a.data, a.add...)
	a.add = a.add[:0]
}
