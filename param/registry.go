package param

// Registry is an ordered collection of TypedParams owned by one controller.
// It applies the capture/push-effective/push-invalid verbs across the whole
// set in registration order, mirroring the way the controller freezes every
// knob atomically at the start of an arming and unfreezes them at cleanup.
//
// Registry carries no locking of its own. The capture/push verbs are called
// by the acquisition thread with the controller mutex held; Params, ByName
// and Gate are also called from parameter-bus handlers and the controller's
// WriteParam/ReadParam.
type Registry struct {
	params []Parameter
	gate   *Gate
}

// NewRegistry returns an empty registry with its own protected-write gate.
func NewRegistry() *Registry {
	return &Registry{gate: NewGate()}
}

// Gate returns the registry's ProtectedParamGate, so a controller can add
// its own fixed (non-TypedParam) read-only names to the same set.
func (r *Registry) Gate() *Gate { return r.gate }

func (r *Registry) add(p Parameter) {
	r.params = append(r.params, p)
}

// Params returns a snapshot slice of every registered parameter, in
// registration order, for bus enumeration.
func (r *Registry) Params() []Parameter {
	out := make([]Parameter, len(r.params))
	copy(out, r.params)
	return out
}

// ByName looks up a registered parameter by either its desired or effective
// name, for the bus's GET/PUT handlers.
func (r *Registry) ByName(name string) (Parameter, bool) {
	for _, p := range r.params {
		if p.DesiredName() == name || p.EffectiveName() == name {
			return p, true
		}
	}
	return nil, false
}

// Capture snapshots every registered parameter: snapshot←desired,
// irrelevant←false. Called once per arming, right after
// wait_for_preconditions returns true.
func (r *Registry) Capture() {
	for _, p := range r.params {
		p.capture()
	}
}

// PushEffectiveFromSnapshot pushes effective←snapshot (or effective←invalid
// for params marked irrelevant during check_settings) across every
// registered parameter. Called once per arming, after check_settings
// returns.
func (r *Registry) PushEffectiveFromSnapshot() {
	for _, p := range r.params {
		p.pushEffectiveFromSnapshot()
	}
}

// PushEffectiveInvalid resets every registered parameter's effective value
// to its invalid sentinel. Called during cleanup, before the controller
// leaves Busy/Error for Disarm.
func (r *Registry) PushEffectiveInvalid() {
	for _, p := range r.params {
		p.pushEffectiveInvalid()
	}
}
