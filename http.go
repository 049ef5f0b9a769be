// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/prometheus"
	"github.com/gorilla/mux"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// maxReadBytes is the number of bytes to read
	// from a request body. It's intended to be used
	// with an io.LimitReader
	maxReadBytes = 1 * 1024 * 1024

	welcomeMessage = "Welcome to the User Management System"
)

var (
	internalServerErrors = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "internal_server_errors",
		Help: "Count of how many 500 errors we've responded with",
	}, nil)
)

// read consumes an io.Reader (wrapping with io.LimitReader)
// and returns either the resulting bytes or a non-nil error.
func read(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	r = io.LimitReader(r, maxReadBytes)
	return io.ReadAll(r)
}

// queryRequest is implemented by request bodies which can also be
// read from URL query parameters.
type queryRequest interface {
	fromQuery(q url.Values)
}

// decodeRequest reads a JSON body into req. When the request has no
// body the fields are read from its query parameters instead.
func decodeRequest(r *http.Request, req queryRequest) error {
	bs, err := read(r.Body)
	if err != nil {
		return validationError("problem reading request body")
	}
	if len(bytes.TrimSpace(bs)) == 0 {
		req.fromQuery(r.URL.Query())
		return nil
	}
	if err := json.Unmarshal(bs, req); err != nil {
		return validationError("invalid JSON request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeMessage responds with 200 OK and {"message": msg}
func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": msg,
	})
}

// encodeError JSON encodes the supplied error
//
// The HTTP status of "400 Bad Request" is written to the
// response unless status overrides it.
func encodeError(w http.ResponseWriter, err error, status ...int) {
	if err == nil {
		return
	}
	code := http.StatusBadRequest
	if len(status) > 0 {
		code = status[0]
	}
	writeJSON(w, code, map[string]string{
		"error": err.Error(),
	})
}

// internalError logs err and responds with a 500. msg is what callers see,
// err is never returned to them.
func internalError(logger log.Logger, w http.ResponseWriter, err error, component, msg string) {
	internalServerErrors.Add(1)
	logger.Log(component, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": msg,
	})
}

func addPingRoute(router *mux.Router) {
	router.Methods("GET").Path("/").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, welcomeMessage)
	})
}
