package armctl

// Channels is the minimal facet of the downstream data-submission
// collaborator the controller itself needs to drive: a reset of its array
// slots at the start of every arming (§4.4 step 5). The richer
// allocate/submit primitive (§6.3) is exposed directly by the collaborator
// to the adapter's ProcessBurstData implementation, not through the
// controller, so it is intentionally not part of this interface — keeping
// it here would force every collaborator implementation to route array
// submission through the controller for no benefit.
type Channels interface {
	Reset()
}

// ChannelsFactory constructs the downstream collaborator bound to c. It
// runs once, from NewController, after every base parameter has been
// registered, mirroring the ordering the original's completeInit enforced
// for createChannelsDriver.
type ChannelsFactory func(c *Controller) Channels
