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
	accountRegistrations = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "account_registrations",
		Help: "Count of accounts created",
	}, nil)

	errAlreadyRegistered = newUserError(errConflict, "Email or Phone Number already registered")
)

const (
	registeredMessage   = "User registered successfully"
	registrationFailure = "An error occurred during registration."
)

type signupRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

func (req *signupRequest) fromQuery(q url.Values) {
	req.FirstName = q.Get("first_name")
	req.LastName = q.Get("last_name")
	req.Email = q.Get("email")
	req.PhoneNumber = q.Get("phone_number")
	req.Password = q.Get("password")
}

// validate checks each field in order and returns the first failure
// along with the numeric phone number.
func (req *signupRequest) validate() (int64, error) {
	if err := checkName("first_name", req.FirstName); err != nil {
		return 0, err
	}
	if err := checkName("last_name", req.LastName); err != nil {
		return 0, err
	}
	if err := checkEmail(req.Email); err != nil {
		return 0, err
	}
	phone, err := checkPhone(req.PhoneNumber)
	if err != nil {
		return 0, err
	}
	if err := checkPassword(req.Password); err != nil {
		return 0, err
	}
	return phone, nil
}

func addSignupRoutes(router *mux.Router, logger log.Logger, hasher passwordHasher, repo accountRepository) {
	router.Methods("POST").Path("/register").HandlerFunc(signupRoute(logger, hasher, repo))
}

func signupRoute(logger log.Logger, hasher passwordHasher, repo accountRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var signup signupRequest
		if err := decodeRequest(r, &signup); err != nil {
			encodeError(w, err)
			return
		}
		phone, err := signup.validate()
		if err != nil {
			encodeError(w, err)
			return
		}

		existing, err := repo.findByEmailOrPhone(r.Context(), signup.Email, phone)
		if err != nil && !errors.Is(err, errNotFound) {
			internalError(logger, w, err, "signup", registrationFailure)
			return
		}
		if existing != nil {
			logger.Log("signup", "email or phone already registered", "accountId", existing.ID)
			encodeError(w, errAlreadyRegistered)
			return
		}

		hash, err := hasher.hash(signup.Password)
		if err != nil {
			internalError(logger, w, err, "signup", registrationFailure)
			return
		}
		acct, err := repo.insert(r.Context(), &Account{
			FirstName:    signup.FirstName,
			LastName:     signup.LastName,
			Email:        signup.Email,
			PhoneNumber:  phone,
			PasswordHash: hash,
		})
		if err != nil {
			// a concurrent signup won the unique constraint
			if errors.Is(err, errConflict) {
				encodeError(w, errAlreadyRegistered)
				return
			}
			internalError(logger, w, err, "signup", registrationFailure)
			return
		}

		accountRegistrations.Add(1)
		logger.Log("signup", "account created", "accountId", acct.ID)
		writeMessage(w, registeredMessage)
	}
}
