// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package admin

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAdmin__pprofProfileEnabled(t *testing.T) {
	t.Setenv("PPROF_HEAP", "no")
	t.Setenv("PPROF_TRACE", "YES")

	if pprofProfileEnabled("heap", true) {
		t.Error("heap should be disabled")
	}
	if !pprofProfileEnabled("trace", false) {
		t.Error("trace should be enabled")
	}
	if !pprofProfileEnabled("goroutine", true) {
		t.Error("expected zero value")
	}
}

func TestAdmin__routes(t *testing.T) {
	t.Setenv("PPROF_HEAP", "no")

	svc := NewServer("")
	if addr := svc.BindAddress(); addr != ":9090" {
		t.Errorf("got %q", addr)
	}
	svc.AddHandler("/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := map[string]int{
		"/metrics":                http.StatusOK,
		"/ready":                  http.StatusOK,
		"/debug/pprof/":           http.StatusOK,
		"/debug/pprof/goroutine":  http.StatusOK,
		"/debug/pprof/heap":       http.StatusNotFound,
		"/debug/pprof/trace":      http.StatusNotFound,
		"/debug/pprof/unknown123": http.StatusNotFound,
	}
	for path, status := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", path, nil)
		svc.router.ServeHTTP(w, req)
		if w.Code != status {
			t.Errorf("%s: got %d, expected %d", path, w.Code, status)
		}
	}
}

func TestAdmin__serve(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	svc := NewServer(ln.Addr().String())

	errs := make(chan error, 1)
	go func() {
		errs <- svc.serve(ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("bogus HTTP status: %d", resp.StatusCode)
	}

	if err := svc.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := <-errs; err != nil {
		t.Errorf("serve returned %v", err)
	}
}
