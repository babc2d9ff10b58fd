package armctl

import "math"

// BurstMetaInfo is the per-burst metadata record: a burst id (wrapping) plus
// three durations. A NaN duration means "not reported" by the adapter.
type BurstMetaInfo struct {
	BurstID  int
	TBurst   float64
	TRead    float64
	TProcess float64
}

// NewBurstMetaInfo returns a record for burstID with all durations marked
// not-reported.
func NewBurstMetaInfo(burstID int) BurstMetaInfo {
	return BurstMetaInfo{
		BurstID:  burstID,
		TBurst:   math.NaN(),
		TRead:    math.NaN(),
		TProcess: math.NaN(),
	}
}

// PublishBurstMeta atomically writes the four burst-meta fields and flushes
// the change notifier, if one is registered. Must be invoked with the
// controller mutex NOT held.
func (c *Controller) PublishBurstMeta(info BurstMetaInfo) {
	c.mu.Lock()
	c.burstID = info.BurstID
	c.tBurst = info.TBurst
	c.tRead = info.TRead
	c.tProcess = info.TProcess
	c.mu.Unlock()
	c.notify()
}
