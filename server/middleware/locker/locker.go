// Package locker provides an HTTP middleware which locks a subset of
// routes, returning 423 (Locked) while engaged. The bus package uses it to
// bounce configuration writes while the controller is armed, instead of
// routing that check through every individual parameter handler.
package locker

import (
	"encoding/json"
	"go/types"
	"net/http"
	"strings"

	"github.jpl.nasa.gov/bdube/transrec/server"
)

// Locker behaves like a sync.Mutex without the blocking: Lock/Unlock set a
// flag, and Check rejects requests to protected paths while it is set.
type Locker struct {
	isLocked bool

	// DoNotProtect lists URL path substrings exempt from the lock (the
	// lock's own routes, health checks, and so on).
	DoNotProtect []string
}

// New returns a Locker with DoNotProtect prepopulated with "lock".
func New() *Locker {
	return &Locker{DoNotProtect: []string{"lock"}}
}

// Lock engages the lock.
func (l *Locker) Lock() { l.isLocked = true }

// Unlock releases the lock.
func (l *Locker) Unlock() { l.isLocked = false }

// Locked reports the current state.
func (l *Locker) Locked() bool { return l.isLocked }

// Check is an HTTP middleware that returns 423 Locked for protected paths
// while Locked() is true, otherwise passes the request through.
func (l *Locker) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.Locked() {
			protected := true
			url := r.URL.Path
			for _, str := range l.DoNotProtect {
				if strings.Contains(url, str) {
					protected = false
				}
			}
			if protected {
				w.WriteHeader(http.StatusLocked)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// HTTPSet locks or unlocks based on a JSON {"bool": ...} request body.
func (l *Locker) HTTPSet(w http.ResponseWriter, r *http.Request) {
	b := server.BoolT{}
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if b.Bool {
		l.Lock()
	} else {
		l.Unlock()
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPGet returns Locked() as JSON.
func (l *Locker) HTTPGet(w http.ResponseWriter, r *http.Request) {
	hp := server.HumanPayload{T: types.Bool, Bool: l.Locked()}
	hp.EncodeAndRespond(w, r)
}
