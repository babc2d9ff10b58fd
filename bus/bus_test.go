package bus

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.jpl.nasa.gov/bdube/transrec/armctl"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	ctrl, err := armctl.NewController(armctl.Options{
		Adapter: func(c *armctl.Controller) armctl.DigitizerAdapter {
			return &armctl.BaseAdapter{Controller: c}
		},
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return New(ctrl)
}

func TestGetArmState(t *testing.T) {
	b := newTestBus(t)
	req := httptest.NewRequest(http.MethodGet, "/ARM_STATE", nil)
	rec := httptest.NewRecorder()
	b.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Int int `json:"int"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Int != int(armctl.Disarm) {
		t.Errorf("ARM_STATE = %d, want %d", body.Int, armctl.Disarm)
	}
}

func TestSetAndGetNumBursts(t *testing.T) {
	b := newTestBus(t)

	payload, _ := json.Marshal(map[string]float64{"f64": 7})
	req := httptest.NewRequest(http.MethodPost, "/DESIRED_NUM_BURSTS", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	b.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/DESIRED_NUM_BURSTS", nil)
	rec = httptest.NewRecorder()
	b.Router().ServeHTTP(rec, req)
	var got struct {
		Float float64 `json:"f64"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Float != 7 {
		t.Errorf("DESIRED_NUM_BURSTS = %v, want 7", got.Float)
	}
}

func TestProtectedWriteRejected(t *testing.T) {
	b := newTestBus(t)

	payload, _ := json.Marshal(map[string]float64{"f64": 3})
	req := httptest.NewRequest(http.MethodPost, "/DESIRED_ACHIEVABLE_SAMPLE_RATE", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	b.Router().ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Error("write to an internal parameter's desired side should be rejected")
	}
}

func TestArmRequestInvalidValue(t *testing.T) {
	b := newTestBus(t)

	payload, _ := json.Marshal(map[string]int{"state": 99})
	req := httptest.NewRequest(http.MethodPost, "/ARM_REQUEST", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	b.Router().ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Error("ARM_REQUEST write with an undefined enum value should be rejected")
	}
}

func TestWritesLockedWhileArmed(t *testing.T) {
	b := newTestBus(t)
	if err := b.ctrl.WriteParam("DESIRED_NUM_POST_SAMPLES", 100); err != nil {
		t.Fatalf("write NUM_POST_SAMPLES: %v", err)
	}

	if err := b.ctrl.HandleArmRequest(armctl.PostTrigger); err != nil {
		t.Fatalf("HandleArmRequest: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for !b.ctrl.IsArmed() || b.ctrl.ArmState() != armctl.PostTrigger || !b.locker.Locked() {
		if time.Now().After(deadline) {
			t.Fatal("controller never reported armed with the bus locked")
		}
		time.Sleep(time.Millisecond)
	}

	payload, _ := json.Marshal(map[string]float64{"f64": 7})
	req := httptest.NewRequest(http.MethodPost, "/DESIRED_NUM_BURSTS", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	b.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusLocked {
		t.Errorf("POST DESIRED_NUM_BURSTS while armed = %d, want %d", rec.Code, http.StatusLocked)
	}

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	rec = httptest.NewRecorder()
	b.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /status while armed = %d, want 200 (status must stay reachable)", rec.Code)
	}

	if err := b.ctrl.HandleArmRequest(armctl.Disarm); err != nil {
		t.Fatalf("HandleArmRequest(Disarm): %v", err)
	}
}

func TestStatusEndpoint(t *testing.T) {
	b := newTestBus(t)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	b.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload statusPayload
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.ArmState != "Disarm" {
		t.Errorf("arm_state = %q, want Disarm", payload.ArmState)
	}
}
