// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/prometheus"
	"github.com/gorilla/mux"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

var (
	passwordResetRequests = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "password_reset_requests",
		Help: "Count of password reset emails requested",
	}, nil)
	passwordResets = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "password_resets",
		Help: "Count of passwords changed with a reset token",
	}, nil)
)

const (
	resetEmailSentMessage = "Password reset email sent"
	passwordResetMessage  = "Password reset successfully"
)

// resetEmailer delivers reset tokens to account holders.
type resetEmailer interface {
	sendResetEmail(to, token string) error
}

type resetRouter struct {
	logger log.Logger

	repo   accountRepository
	hasher passwordHasher
	tokens *resetTokens
	mailer resetEmailer
	tasks  *backgroundTasks

	tokenTTL time.Duration
}

func (rr *resetRouter) registerRoutes(router *mux.Router) {
	router.Methods("POST").Path("/forgot-password").HandlerFunc(rr.forgotPassword())
	router.Methods("POST").Path("/reset-password").HandlerFunc(rr.resetPassword())
}

type forgotRequest struct {
	Email string `json:"email"`
}

func (req *forgotRequest) fromQuery(q url.Values) {
	req.Email = q.Get("email")
}

func (rr *resetRouter) forgotPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var forgot forgotRequest
		if err := decodeRequest(r, &forgot); err != nil {
			encodeError(w, err)
			return
		}
		if err := checkEmail(forgot.Email); err != nil {
			encodeError(w, err)
			return
		}

		acct, err := rr.repo.findByEmail(r.Context(), forgot.Email)
		if err != nil {
			if errors.Is(err, errNotFound) {
				encodeError(w, errEmailNotFound, http.StatusNotFound)
				return
			}
			internalError(rr.logger, w, err, "forgot-password", "An error occurred while requesting a password reset.")
			return
		}

		token, expires, err := rr.tokens.issue(acct.Email, rr.tokenTTL)
		if err != nil {
			internalError(rr.logger, w, err, "forgot-password", "An error occurred while requesting a password reset.")
			return
		}
		acct.Reset = &PasswordReset{
			Token:     token,
			ExpiresAt: expires,
		}
		if err := rr.repo.update(r.Context(), acct); err != nil {
			internalError(rr.logger, w, err, "forgot-password", "An error occurred while requesting a password reset.")
			return
		}

		passwordResetRequests.Add(1)
		writeMessage(w, resetEmailSentMessage)

		to := acct.Email
		rr.tasks.add("reset-email", func() error {
			return rr.mailer.sendResetEmail(to, token)
		})
	}
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (req *resetRequest) fromQuery(q url.Values) {
	req.Token = q.Get("token")
	req.NewPassword = q.Get("new_password")
}

func (rr *resetRouter) resetPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reset resetRequest
		if err := decodeRequest(r, &reset); err != nil {
			encodeError(w, err)
			return
		}
		if reset.NewPassword == "" {
			encodeError(w, validationError("new_password must not be empty"))
			return
		}

		email, err := rr.tokens.verify(reset.Token)
		if err != nil {
			encodeError(w, err) // errTokenExpired or errTokenInvalid
			return
		}

		acct, err := rr.repo.findByEmail(r.Context(), email)
		if err != nil {
			if errors.Is(err, errNotFound) {
				encodeError(w, errTokenInvalid)
				return
			}
			internalError(rr.logger, w, err, "reset-password", "An error occurred while resetting the password.")
			return
		}

		// Only the most recently issued token is accepted, and only once.
		if acct.Reset == nil || subtle.ConstantTimeCompare([]byte(acct.Reset.Token), []byte(reset.Token)) != 1 {
			rr.logger.Log("reset-password", "token does not match stored reset token", "accountId", acct.ID)
			encodeError(w, errTokenInvalid)
			return
		}

		hash, err := rr.hasher.hash(reset.NewPassword)
		if err != nil {
			internalError(rr.logger, w, err, "reset-password", "An error occurred while resetting the password.")
			return
		}
		if err := rr.repo.consumeReset(r.Context(), acct.ID, reset.Token, hash); err != nil {
			if errors.Is(err, errNotFound) {
				// a concurrent reset consumed the token first
				rr.logger.Log("reset-password", "reset token already consumed", "accountId", acct.ID)
				encodeError(w, errTokenInvalid)
				return
			}
			internalError(rr.logger, w, err, "reset-password", "An error occurred while resetting the password.")
			return
		}

		passwordResets.Add(1)
		rr.logger.Log("reset-password", "password changed", "accountId", acct.ID)
		writeMessage(w, passwordResetMessage)
	}
}
