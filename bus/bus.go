// Package bus is the parameter-bus collaborator (§6.1, out of scope for the
// core itself, but the framework's only useful external surface): it binds
// an armctl.Controller to a chi router, exposing the fixed base parameters
// and every registered TypedParam as named HTTP routes, routing every write
// through the controller's own ProtectedParamGate check.
package bus

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/pkg/errors"

	"github.jpl.nasa.gov/bdube/transrec/armctl"
	"github.jpl.nasa.gov/bdube/transrec/generichttp"
	"github.jpl.nasa.gov/bdube/transrec/server/middleware/locker"
	"github.jpl.nasa.gov/bdube/transrec/timeaxis"
)

// Bus owns the chi router wired to one controller.
type Bus struct {
	ctrl   *armctl.Controller
	router chi.Router
	locker *locker.Locker
}

// New builds the full route table and returns a Bus ready to be mounted
// under a stem by the caller. Every route not named in DoNotProtect is
// bounced with 423 Locked while the controller is armed: a coarser guard
// than ProtectedParamGate, which only governs individual internal params.
// Status, burst-meta, arm-state, and the lock route itself stay reachable
// so a caller can still watch an armed run; every other route, reads as
// well as writes (the DESIRED_*/EFFECTIVE_* pairs among them), is rejected
// until disarm.
func New(ctrl *armctl.Controller) *Bus {
	l := locker.New()
	l.DoNotProtect = []string{"ARM_REQUEST", "ARM_STATE", "BURST", "status", "LOCK"}

	b := &Bus{ctrl: ctrl, router: chi.NewRouter(), locker: l}
	b.router.Use(l.Check)
	b.bindFixedParams()
	b.bindTypedParams()
	b.bindArmRequest()
	b.bindBurstMeta()
	b.bindStatus()
	b.bindLock()

	ctrl.SetChangeNotifier(func() {
		if ctrl.IsArmed() {
			l.Lock()
		} else {
			l.Unlock()
		}
	})
	return b
}

// bindLock exposes the write-lock's own state at /LOCK, for a client that
// wants to poll whether writes are currently being bounced.
func (b *Bus) bindLock() {
	b.router.Get("/LOCK", b.locker.HTTPGet)
	b.router.Post("/LOCK", b.locker.HTTPSet)
}

// Router returns the chi router, for mounting under a stem by the caller
// (cmd/transrecsrv mounts it at "/" or under the configured Root stem).
func (b *Bus) Router() chi.Router { return b.router }

// BindTimeAxis mounts GET /TIME_AXIS, reading the current relative time
// axis off axis. It is separate from New because the time-axis port is an
// optional collaborator (armctl.Options.TimeAxis may be nil).
func (b *Bus) BindTimeAxis(axis *timeaxis.Port) {
	b.router.Get("/TIME_AXIS", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(axis.Read(0))
	})
}

func (b *Bus) bindFixedParams() {
	b.router.Get("/ARM_STATE", generichttp.GetInt(func() (int, error) {
		return int(b.ctrl.ArmState()), nil
	}))
	b.router.Get("/EFFECTIVE_SAMPLE_RATE", generichttp.GetFloat(func() (float64, error) {
		return b.ctrl.EffectiveSampleRate(), nil
	}))
	b.router.Get("/DIGITIZER_NAME", generichttp.GetString(func() (string, error) {
		return b.ctrl.DigitizerName(), nil
	}))
	b.router.Post("/DIGITIZER_NAME", generichttp.SetString(func(v string) error {
		b.ctrl.SetDigitizerName(v)
		return nil
	}))
	b.router.Get("/SLEEP_AFTER_BURST", generichttp.GetFloat(func() (float64, error) {
		return b.ctrl.SleepAfterBurst(), nil
	}))
	b.router.Post("/SLEEP_AFTER_BURST", generichttp.SetFloat(func(v float64) error {
		b.ctrl.SetSleepAfterBurst(v)
		return nil
	}))
	b.router.Get("/TIME_ARRAY_UNIT_INV", generichttp.GetFloat(func() (float64, error) {
		return b.ctrl.TimeArrayUnitInv(), nil
	}))
	b.router.Post("/TIME_ARRAY_UNIT_INV", generichttp.SetFloat(func(v float64) error {
		b.ctrl.SetTimeArrayUnitInv(v)
		return nil
	}))
}

// bindTypedParams mounts a GET/POST pair per registered TypedParam at its
// DESIRED_/EFFECTIVE_ names, wrapping every write through WriteParam so the
// ProtectedParamGate and the REQUESTED_SAMPLE_RATE special case both apply.
func (b *Bus) bindTypedParams() {
	for _, p := range b.ctrl.Registry().Params() {
		p := p
		desiredName, effectiveName := p.DesiredName(), p.EffectiveName()

		b.router.Get("/"+effectiveName, generichttp.GetFloat(func() (float64, error) {
			return p.EffectiveFloat(), nil
		}))
		b.router.Get("/"+desiredName, generichttp.GetFloat(func() (float64, error) {
			return p.DesiredFloat(), nil
		}))
		b.router.Post("/"+desiredName, generichttp.SetFloat(func(v float64) error {
			return b.ctrl.WriteParam(desiredName, v)
		}))
	}
}

// armRequestBody is the JSON body accepted by POST /ARM_REQUEST.
type armRequestBody struct {
	State int `json:"state"`
}

func (b *Bus) bindArmRequest() {
	b.router.Get("/ARM_REQUEST", generichttp.GetInt(func() (int, error) {
		return int(b.ctrl.ArmState()), nil
	}))
	b.router.Post("/ARM_REQUEST", func(w http.ResponseWriter, r *http.Request) {
		var body armRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := b.ctrl.HandleArmRequest(armctl.ArmState(body.State)); err != nil {
			http.Error(w, errors.Cause(err).Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func (b *Bus) bindBurstMeta() {
	b.router.Get("/BURST_ID", generichttp.GetInt(func() (int, error) {
		return b.ctrl.BurstMeta().BurstID, nil
	}))
	b.router.Get("/BURST_TIME_BURST", generichttp.GetFloat(func() (float64, error) {
		return b.ctrl.BurstMeta().TBurst, nil
	}))
	b.router.Get("/BURST_TIME_READ", generichttp.GetFloat(func() (float64, error) {
		return b.ctrl.BurstMeta().TRead, nil
	}))
	b.router.Get("/BURST_TIME_PROCESS", generichttp.GetFloat(func() (float64, error) {
		return b.ctrl.BurstMeta().TProcess, nil
	}))
}

// statusPayload is the full snapshot returned by GET /status, for
// cmd/trarmctl's single-shot status print and watch loop.
type statusPayload struct {
	ArmState             string   `json:"arm_state"`
	EffectiveSampleRate  *float64 `json:"effective_sample_rate"`
	DigitizerName        string   `json:"digitizer_name"`
	SleepAfterBurst      float64  `json:"sleep_after_burst"`
	BurstID              int      `json:"burst_id"`
	TBurst               *float64 `json:"t_burst"`
	TRead                *float64 `json:"t_read"`
	TProcess             *float64 `json:"t_process"`
}

func (b *Bus) bindStatus() {
	// NaN marks a value as not reported; JSON cannot carry NaN, so such
	// fields are sent as null.
	reported := func(v float64) *float64 {
		if math.IsNaN(v) {
			return nil
		}
		return &v
	}
	b.router.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		meta := b.ctrl.BurstMeta()
		payload := statusPayload{
			ArmState:            b.ctrl.ArmState().String(),
			EffectiveSampleRate: reported(b.ctrl.EffectiveSampleRate()),
			DigitizerName:       b.ctrl.DigitizerName(),
			SleepAfterBurst:     b.ctrl.SleepAfterBurst(),
			BurstID:             meta.BurstID,
			TBurst:              reported(meta.TBurst),
			TRead:               reported(meta.TRead),
			TProcess:            reported(meta.TProcess),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(payload)
	})
}
