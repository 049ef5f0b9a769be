// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// testServer wires the public routes to an in-memory store and a fake
// mail dialer.
type testServer struct {
	router *mux.Router
	repo   accountRepository
	dialer *fakeDialer
	tasks  *backgroundTasks
	tokens *resetTokens
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo, err := openBuntRepository(log.NewNopLogger(), "")
	require.NoError(t, err)
	t.Cleanup(func() { repo.close() })

	return newTestServerWithRepo(t, repo)
}

func newTestServerWithRepo(t *testing.T, repo accountRepository) *testServer {
	t.Helper()

	tokens, err := newResetTokens("secret")
	require.NoError(t, err)

	dialer := &fakeDialer{}
	mailer, err := newResetMailerWithDialer(dialer, "noreply@moov.io", "Moov", "http://example.com/reset-password")
	require.NoError(t, err)

	logger := log.NewNopLogger()
	tasks := newBackgroundTasks(logger)
	hasher := newBcryptHasher(bcrypt.MinCost)

	router := newRouter(logger, repo, hasher, &resetRouter{
		logger:   logger,
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		mailer:   mailer,
		tasks:    tasks,
		tokenTTL: time.Hour,
	})
	return &testServer{
		router: router,
		repo:   repo,
		dialer: dialer,
		tasks:  tasks,
		tokens: tokens,
	}
}

// do sends body (JSON encoded unless it's a string) and returns the status
// along with the decoded JSON response.
func (s *testServer) do(t *testing.T, method, path string, body interface{}) (int, map[string]string) {
	t.Helper()

	var r io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(v)
	default:
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(v))
		r = &buf
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, r)
	s.router.ServeHTTP(w, req)
	w.Flush()

	var resp map[string]string
	if w.Body.Len() > 0 {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp), "body: %s", w.Body.String())
	}
	return w.Code, resp
}

// failingRepo returns err from every call and counts them.
type failingRepo struct {
	err   error
	calls int32
}

func (r *failingRepo) fail() error {
	atomic.AddInt32(&r.calls, 1)
	return r.err
}

func (r *failingRepo) findByEmail(context.Context, string) (*Account, error) {
	return nil, r.fail()
}

func (r *failingRepo) findByEmailOrPhone(context.Context, string, int64) (*Account, error) {
	return nil, r.fail()
}

func (r *failingRepo) insert(context.Context, *Account) (*Account, error) {
	return nil, r.fail()
}

func (r *failingRepo) update(context.Context, *Account) error { return r.fail() }
func (r *failingRepo) consumeReset(context.Context, int64, string, string) error {
	return r.fail()
}
func (r *failingRepo) ping(context.Context) error { return r.fail() }
func (r *failingRepo) close() error { return nil }

func TestHTTP__ping(t *testing.T) {
	s := newTestServer(t)

	status, resp := s.do(t, "GET", "/", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, welcomeMessage, resp["message"])
}

func TestHTTP__notFound(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest("GET", "/users/create", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	// wrong method
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest("GET", "/login", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHTTP__decodeRequest(t *testing.T) {
	// JSON body
	req := httptest.NewRequest("POST", "/login?email=query@x.com", strings.NewReader(`{"email":"a@x.com","password":"p1"}`))
	var login loginRequest
	require.NoError(t, decodeRequest(req, &login))
	require.Equal(t, "a@x.com", login.Email)
	require.Equal(t, "p1", login.Password)

	// query params when there's no body
	req = httptest.NewRequest("POST", "/login?email=b@x.com&password=p2", strings.NewReader("  \n"))
	login = loginRequest{}
	require.NoError(t, decodeRequest(req, &login))
	require.Equal(t, "b@x.com", login.Email)
	require.Equal(t, "p2", login.Password)

	// bad JSON
	req = httptest.NewRequest("POST", "/login", strings.NewReader(`{"email":`))
	err := decodeRequest(req, &login)
	require.True(t, errors.Is(err, errValidation), "got %v", err)
}

func TestHTTP__read(t *testing.T) {
	bs, err := read(nil)
	require.NoError(t, err)
	require.Empty(t, bs)

	bs, err = read(strings.NewReader(strings.Repeat("a", maxReadBytes+10)))
	require.NoError(t, err)
	require.Len(t, bs, maxReadBytes)
}

func TestHTTP__encodeError(t *testing.T) {
	w := httptest.NewRecorder()
	encodeError(w, errors.New("bad"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"bad"}`, w.Body.String())

	w = httptest.NewRecorder()
	encodeError(w, errors.New("missing"), http.StatusNotFound)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	encodeError(w, nil)
	require.Equal(t, 0, w.Body.Len())
}

func TestHTTP__internalError(t *testing.T) {
	w := httptest.NewRecorder()
	internalError(log.NewNopLogger(), w, errors.New("pq: connection refused"), "test", "An error occurred.")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	// store details never leak to callers
	require.JSONEq(t, `{"error":"An error occurred."}`, w.Body.String())
}

func TestHTTP__ready(t *testing.T) {
	repo, err := openBuntRepository(log.NewNopLogger(), "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	readyRoute(log.NewNopLogger(), repo)(w, httptest.NewRequest("GET", "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, repo.close())

	w = httptest.NewRecorder()
	readyRoute(log.NewNopLogger(), repo)(w, httptest.NewRequest("GET", "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
