// Package param implements the desired/effective/snapshot parameter model
// that the arming controller freezes at the start of every arming sequence.
//
// A TypedParam pairs a desired value (externally writable, type V) with an
// effective value (externally readable, type E, real-valued so that NaN can
// stand in for "invalid"). A Registry owns an ordered collection of them and
// applies the capture/push-effective verbs across the whole set in one call,
// the way the controller freezes every knob atomically at arming time.
package param

import "fmt"

// Number is the constraint satisfied by both halves of a TypedParam.
// Supported (V,E) pairs are (int,int), (int,float64) and (float64,float64);
// nothing stops instantiating other combinations, but the controller never
// does.
type Number interface {
	~int | ~float64
}

// Parameter is the capability interface the Registry iterates to apply the
// capture/push-effective/push-invalid verbs across every registered knob
// without needing to know its concrete (V,E) instantiation.
type Parameter interface {
	// DesiredName is the externally presented "DESIRED_<base>" name.
	DesiredName() string
	// EffectiveName is the externally presented "EFFECTIVE_<base>" name.
	EffectiveName() string
	// DesiredFloat reads the desired value widened to float64, for bus
	// presentation and generic tooling.
	DesiredFloat() float64
	// EffectiveFloat reads the effective value widened to float64.
	EffectiveFloat() float64
	// Internal reports whether external writes to the desired side are
	// rejected (the adapter is the only writer).
	Internal() bool
	// SetDesiredFloat attempts an external write of the desired value.
	// It fails for internal parameters.
	SetDesiredFloat(v float64) error

	capture()
	pushEffectiveFromSnapshot()
	pushEffectiveInvalid()
}

// internalWriteError is returned by SetDesiredFloat when the target parameter's
// desired side is driver-controlled.
type internalWriteError struct{ name string }

func (e *internalWriteError) Error() string {
	return fmt.Sprintf("param: %s is internal; external writes to its desired value are rejected", e.name)
}

// TypedParam is one (desired V, effective E) knob. Zero value is not usable;
// Init must be called exactly once before use.
type TypedParam[V Number, E Number] struct {
	reg         *Registry
	initialized bool
	internal    bool
	irrelevant  bool

	desired  V
	effective E
	snapshot V
	invalid  E

	baseName      string
	desiredName   string
	effectiveName string
}

// Init creates the two externally-visible names "DESIRED_<baseName>" and
// "EFFECTIVE_<baseName>", sets effective to invalid, registers the effective
// parameter (and the desired one, if internal) as write-protected on the
// registry's gate, and appends the receiver to the registry. It must be
// called at most once.
func (p *TypedParam[V, E]) Init(reg *Registry, baseName string, invalid E, internal bool) {
	if p.initialized {
		panic("param: TypedParam " + baseName + " initialized twice")
	}
	p.initialized = true
	p.reg = reg
	p.internal = internal
	p.invalid = invalid
	p.baseName = baseName
	p.desiredName = "DESIRED_" + baseName
	p.effectiveName = "EFFECTIVE_" + baseName
	p.irrelevant = true
	p.effective = invalid

	reg.add(p)
	reg.gate.Protect(p.effectiveName)
	if internal {
		reg.gate.Protect(p.desiredName)
	}
}

// GetDesired reads the current desired value. Must be called with the
// controller mutex held.
func (p *TypedParam[V, E]) GetDesired() V { return p.desired }

// SetDesired updates the desired value. Only valid for internal params;
// panics otherwise, since an external caller can never reach this path (the
// ProtectedParamGate rejects the bus write first) — only adapter code calls
// it directly.
func (p *TypedParam[V, E]) SetDesired(v V) {
	if !p.internal {
		panic("param: SetDesired called on non-internal parameter " + p.baseName)
	}
	p.desired = v
}

// GetSnapshot is the fast read of the frozen value. Legal only inside the
// snapshot window: after wait_for_preconditions returns true and before stop
// completes.
func (p *TypedParam[V, E]) GetSnapshot() V { return p.snapshot }

// SetSnapshot overwrites the frozen value. Legal only inside check_settings.
func (p *TypedParam[V, E]) SetSnapshot(v V) { p.snapshot = v }

// SetIrrelevant marks the parameter as unused by the current configuration.
// Legal only inside check_settings.
func (p *TypedParam[V, E]) SetIrrelevant() { p.irrelevant = true }

// Irrelevant reports the current irrelevant flag.
func (p *TypedParam[V, E]) Irrelevant() bool { return p.irrelevant }

func (p *TypedParam[V, E]) capture() {
	p.snapshot = p.desired
	p.irrelevant = false
}

func (p *TypedParam[V, E]) pushEffectiveFromSnapshot() {
	if p.irrelevant {
		p.effective = p.invalid
		return
	}
	p.effective = E(p.snapshot)
}

func (p *TypedParam[V, E]) pushEffectiveInvalid() {
	p.effective = p.invalid
}

// DesiredName implements Parameter.
func (p *TypedParam[V, E]) DesiredName() string { return p.desiredName }

// EffectiveName implements Parameter.
func (p *TypedParam[V, E]) EffectiveName() string { return p.effectiveName }

// DesiredFloat implements Parameter.
func (p *TypedParam[V, E]) DesiredFloat() float64 { return float64(p.desired) }

// EffectiveFloat implements Parameter.
func (p *TypedParam[V, E]) EffectiveFloat() float64 { return float64(p.effective) }

// Internal implements Parameter.
func (p *TypedParam[V, E]) Internal() bool { return p.internal }

// SetDesiredFloat implements Parameter.
func (p *TypedParam[V, E]) SetDesiredFloat(v float64) error {
	if p.internal {
		return &internalWriteError{name: p.baseName}
	}
	p.desired = V(v)
	return nil
}
