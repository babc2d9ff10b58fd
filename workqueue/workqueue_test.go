package workqueue

import (
	"sync"
	"testing"
	"time"
)

func TestEnqueueRunsInOrder(t *testing.T) {
	q := NewQueue()
	defer q.Stop()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 1; i <= 3; i++ {
		i := i
		task := NewTask(i, func(id int) {
			mu.Lock()
			order = append(order, id)
			n := len(order)
			mu.Unlock()
			if n == 3 {
				close(done)
			}
		})
		if !q.Enqueue(task) {
			t.Fatalf("Enqueue(%d) = false, want true", i)
		}
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tasks to run")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("run order = %v, want [1 2 3]", order)
	}
}

func TestEnqueueAlreadyQueued(t *testing.T) {
	q := NewQueue()
	defer q.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	blocker := NewTask(0, func(int) {
		close(started)
		<-release
	})
	if !q.Enqueue(blocker) {
		t.Fatal("first enqueue of blocker failed")
	}
	<-started // consumer goroutine is now blocked running blocker

	task := NewTask(1, func(int) {})
	if !q.Enqueue(task) {
		t.Fatal("first enqueue of task should succeed")
	}
	if q.Enqueue(task) {
		t.Error("second enqueue of an already-queued task should return false")
	}
	close(release)
}

func TestCancel(t *testing.T) {
	q := NewQueue()
	defer q.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	blocker := NewTask(0, func(int) {
		close(started)
		<-release
	})
	q.Enqueue(blocker)
	<-started

	ran := false
	task := NewTask(1, func(int) { ran = true })
	q.Enqueue(task)
	if !q.Cancel(task) {
		t.Error("Cancel on a queued task should return true")
	}
	if q.Cancel(task) {
		t.Error("Cancel on an already-cancelled task should return false")
	}
	close(release)
	time.Sleep(10 * time.Millisecond)
	if ran {
		t.Error("cancelled task should not have run")
	}
}

func TestStopJoinsConsumer(t *testing.T) {
	q := NewQueue()
	q.Stop()
	select {
	case <-q.done:
	default:
		t.Error("consumer goroutine did not exit after Stop")
	}
}
