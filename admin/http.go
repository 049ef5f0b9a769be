// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer returns an admin HTTP server bound to addr (":9090" when empty)
// with metrics and pprof routes registered.
func NewServer(addr string) *Server {
	if addr == "" {
		addr = ":9090"
	}
	timeout, _ := time.ParseDuration("45s")
	router := handler()
	return &Server{
		router: router,
		svc: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
			IdleTimeout:  timeout,
		},
	}
}

// Server represents a holder around a net/http Server which
// is used for admin endpoints. (i.e. metrics, readiness)
type Server struct {
	router *mux.Router
	svc    *http.Server
}

// BindAddress returns the address the server listens on.
func (s *Server) BindAddress() string {
	if s == nil || s.svc == nil {
		return ""
	}
	return s.svc.Addr
}

// AddHandler registers h for GET requests on path. It must be called
// before Listen.
func (s *Server) AddHandler(path string, h http.HandlerFunc) {
	s.router.Methods("GET").Path(path).HandlerFunc(h)
}

// Listen brings up the admin HTTP service. This call blocks.
func (s *Server) Listen() error {
	if s == nil || s.svc == nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.svc.Addr)
	if err != nil {
		return err
	}
	return s.serve(ln)
}

func (s *Server) serve(ln net.Listener) error {
	if err := s.svc.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown unbinds the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.svc == nil {
		return nil
	}
	return s.svc.Shutdown(ctx)
}

func handler() *mux.Router {
	r := mux.NewRouter()

	// prometheus metrics
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())

	addPprofRoutes(r)

	return r
}
