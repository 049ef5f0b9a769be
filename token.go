// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	errTokenExpired = newUserError(errAuth, "Token has expired")
	errTokenInvalid = newUserError(errAuth, "Invalid token")
)

// resetClaims are embedded in password reset tokens.
type resetClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// resetTokens signs and verifies password reset tokens (HS256 JWT's)
// with a shared secret.
type resetTokens struct {
	secret []byte

	// now is overridden in tests
	now func() time.Time
}

func newResetTokens(secret string) (*resetTokens, error) {
	if secret == "" {
		return nil, errors.New("empty token secret")
	}
	return &resetTokens{
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

// issue returns a signed token bound to email which expires after ttl.
func (t *resetTokens) issue(email string, ttl time.Duration) (string, time.Time, error) {
	now := t.now().UTC()
	expires := now.Add(ttl)

	claims := resetClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("problem signing reset token: %v", err)
	}
	// jwt's NumericDate truncates to seconds, match it so the stored
	// expiry agrees with the embedded one.
	return signed, claims.ExpiresAt.Time, nil
}

// verify checks the signature and expiry of token and returns its email.
//
// errTokenExpired is returned once the embedded expiry has passed, any
// other problem returns errTokenInvalid.
func (t *resetTokens) verify(token string) (string, error) {
	var claims resetClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errTokenExpired
		}
		return "", errTokenInvalid
	}
	if claims.Email == "" {
		return "", errTokenInvalid
	}
	return claims.Email, nil
}
