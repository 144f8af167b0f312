package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/container"
)

func TestPriorityQueueOrder(t *testing.T) {
	q := container.NewPriorityQueue[string]()
	q.HeapPush("c", 3)
	q.HeapPush("a", 1)
	q.HeapPush("d", 4)
	q.HeapPush("b", 2)
	assert.Equal(t, 4, q.Len())

	for _, want := range []string{"a", "b", "c", "d"} {
		v, _ := q.HeapPop()
		assert.Equal(t, want, v)
	}
	assert.Equal(t, 0, q.Len())
}

func TestPriorityQueuePriority(t *testing.T) {
	q := container.NewPriorityQueue[int]()
	q.HeapPush(1, 5.5)
	q.HeapPush(2, 0.5)
	_, p := q.HeapPop()
	assert.Equal(t, 0.5, p)
}

func TestIncrementalArray(t *testing.T) {
	a := container.NewIncrementalArray[int]()
	assert.Equal(t, 0, a.Len())

	// staged values only visible after Prepare
	a.Add(1)
	a.Add(2)
	assert.Equal(t, 0, a.Len())
	a.Prepare()
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, []int{1, 2}, a.Data())

	a.Add(3)
	assert.Equal(t, 2, a.Len())
	a.Prepare()
	assert.Equal(t, []int{1, 2, 3}, a.Data())
}
