// Package server contains misc server utilities shared by the HTTP
// parameter-bus surface: a route table abstraction, a uniform JSON payload
// envelope for scalar gets/sets, and a static-file responder.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"log"
	"net/http"
	"os"
	"path/filepath"
)

// ReplyWithFile replies to the client request by serving the given file name.
func ReplyWithFile(w http.ResponseWriter, r *http.Request, fn string, fldr string) {
	filePath, err := filepath.Abs(filepath.Join(fldr, fn))
	if err != nil {
		fstr := fmt.Sprintf("unable to compute abspath of file %s %s %s", fldr, fn, err)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusInternalServerError)
		return
	}

	f, err := os.Open(filePath)
	if err != nil {
		fstr := fmt.Sprintf("source file missing %s", filePath)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusNotFound)
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		fstr := fmt.Sprintf("error retrieving source file stats %s", err)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusNotFound)
		return
	}
	http.ServeContent(w, r, fn, stat.ModTime(), f)
}

// HumanPayload is the uniform JSON envelope a scalar GET handler replies
// with: T names which of the four fields is populated.
type HumanPayload struct {
	T      types.BasicKind `json:"type"`
	Float  float64         `json:"f64,omitempty"`
	Int    int             `json:"int,omitempty"`
	String string          `json:"str,omitempty"`
	Bool   bool            `json:"bool,omitempty"`
}

// EncodeAndRespond writes hp to w as JSON with a 200 status.
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(hp); err != nil {
		log.Println("error encoding HumanPayload to json:", err)
	}
}

// FloatT is the request body shape a scalar SET handler decodes for a
// float-valued parameter.
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is the request body shape for an int-valued parameter.
type IntT struct {
	Int int `json:"int"`
}

// StrT is the request body shape for a string-valued parameter.
type StrT struct {
	Str string `json:"str"`
}

// BoolT is the request body shape for a bool-valued parameter.
type BoolT struct {
	Bool bool `json:"bool"`
}

// HTTPBinder is an object which knows how to bind methods to HTTP routes and
// can list them.
type HTTPBinder interface {
	BindRoutes(string)
	ListRoutes() []string
}

// RouteTable maps URL endpoints to handlers.
type RouteTable map[string]http.HandlerFunc

// ListEndpoints lists the endpoints in a RouteTable (the keys).
func (rt RouteTable) ListEndpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		routes = append(routes, k)
	}
	return routes
}

// Server holds a RouteTable and implements HTTPBinder.
type Server struct {
	RouteTable RouteTable
}

// BindRoutes binds routes on the default HTTP mux at stem+str for str in
// ListRoutes, plus a stem/list-of-routes introspection endpoint.
func (s *Server) BindRoutes(stem string) {
	for str, meth := range s.RouteTable {
		http.HandleFunc(stem+"/"+str, meth)
	}

	http.HandleFunc(stem+"/list-of-routes", func(w http.ResponseWriter, r *http.Request) {
		list := s.ListRoutes()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(list); err != nil {
			fstr := fmt.Sprintf("error encoding list of routes data to json %q", err)
			log.Println(fstr)
			http.Error(w, fstr, http.StatusInternalServerError)
		}
	})
}

// ListRoutes returns every route bound by this server.
func (s *Server) ListRoutes() []string {
	return s.RouteTable.ListEndpoints()
}
