package container

import "container/heap"

// item 优先队列中单个元素
type item[T any] struct {
	value    T
	priority float64 // 越小越优先
	index    int     // 项在堆中的索引，由heap.Interface维护
}

// priorityQueue 实现heap.Interface的内部堆
type priorityQueue[T any] []*item[T]

func (pq priorityQueue[T]) Len() int { return len(pq) }

func (pq priorityQueue[T]) Less(i, j int) bool {
	return pq[i].priority < pq[j].priority
}

func (pq priorityQueue[T]) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue[T]) Push(x any) {
	n := len(*pq)
	item := x.(*item[T])
	item.index = n
	*pq = append(*pq, item)
}

func (pq *priorityQueue[T]) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // 避免内存泄漏
	item.index = -1
	*pq = old[0 : n-1]
	return item
}

// PriorityQueue 优先队列
// 功能：提供小顶堆语义的优先队列，优先级数值最小的元素最先弹出
// 说明：拥堵感知路径规划器用它维护搜索边界
type PriorityQueue[T any] struct {
	queue priorityQueue[T]
}

// NewPriorityQueue 创建优先队列
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{queue: make(priorityQueue[T], 0)}
}

// Len 获取当前队列长度
func (q *PriorityQueue[T]) Len() int {
	return len(q.queue)
}

// HeapPush 加入元素并维护堆结构
// 参数：value-元素值，priority-元素优先级（越小越优先）
func (q *PriorityQueue[T]) HeapPush(value T, priority float64) {
	heap.Push(&q.queue, &item[T]{
		value:    value,
		priority: priority,
	})
}

// HeapPop 弹出优先级数值最小的元素
// 返回：value-元素值，priority-元素优先级
func (q *PriorityQueue[T]) HeapPop() (value T, priority float64) {
	item := heap.Pop(&q.queue).(*item[T])
	return item.value, item.priority
}
