package armctl

import "sync"

// cancelToken is the disarm-requested-event analogue: a condition variable
// shared with the controller's own mutex. The acquisition thread polls the
// disarmRequested flag at the documented checkpoints and sleeps on this
// condvar wherever the original would otherwise block on the event
// (the default read_burst implementation being the one built-in case).
type cancelToken struct {
	cond *sync.Cond
}

func newCancelToken(mu *sync.Mutex) *cancelToken {
	return &cancelToken{cond: sync.NewCond(mu)}
}

// broadcast wakes every waiter. Must be called with the controller mutex
// held.
func (t *cancelToken) broadcast() {
	t.cond.Broadcast()
}

// wait blocks on the condvar. Must be called with the controller mutex
// held; it is released while blocked and re-acquired before returning,
// exactly like sync.Cond.Wait.
func (t *cancelToken) wait() {
	t.cond.Wait()
}
