// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/prometheus"
	"github.com/gorilla/mux"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

var (
	authSuccesses = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_successes",
		Help: "Count of successful authorizations",
	}, []string{"method"})
	authFailures = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "auth_failures",
		Help: "Count of failed authorizations",
	}, []string{"method"})

	errEmailNotFound   = newUserError(errNotFound, "Email not found")
	errInvalidPassword = newUserError(errAuth, "Invalid password")
)

const loginMessage = "Login successful"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *loginRequest) fromQuery(q url.Values) {
	req.Email = q.Get("email")
	req.Password = q.Get("password")
}

func addLoginRoutes(router *mux.Router, logger log.Logger, hasher passwordHasher, repo accountRepository) {
	router.Methods("POST").Path("/login").HandlerFunc(loginRoute(logger, hasher, repo))
}

func loginRoute(logger log.Logger, hasher passwordHasher, repo accountRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var login loginRequest
		if err := decodeRequest(r, &login); err != nil {
			encodeError(w, err)
			return
		}
		if err := checkEmail(login.Email); err != nil {
			encodeError(w, err)
			return
		}

		// find account by email
		acct, err := repo.findByEmail(r.Context(), login.Email)
		if err != nil {
			if errors.Is(err, errNotFound) {
				// Mark this (and password check) as failure only because
				// the account is involved at this point. Otherwise it's their
				// developer's problem (i.e. bad json).
				authFailures.With("method", "password").Add(1)
				encodeError(w, errEmailNotFound)
				return
			}
			internalError(logger, w, err, "login", "An error occurred during login.")
			return
		}

		if !hasher.verify(login.Password, acct.PasswordHash) {
			authFailures.With("method", "password").Add(1)
			logger.Log("login", "invalid password", "accountId", acct.ID)
			encodeError(w, errInvalidPassword)
			return
		}

		authSuccesses.With("method", "password").Add(1)
		writeMessage(w, loginMessage)
	}
}
