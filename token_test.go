// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestToken__roundTrip(t *testing.T) {
	tokens, err := newResetTokens("secret")
	require.NoError(t, err)

	token, expires, err := tokens.issue("a@x.com", time.Hour)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expires, 2*time.Second)

	email, err := tokens.verify(token)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", email)
}

func TestToken__expired(t *testing.T) {
	tokens, err := newResetTokens("secret")
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tokens.issue("a@x.com", time.Hour)
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.verify(token)
	require.Equal(t, errTokenExpired, err)
	require.True(t, errors.Is(err, errAuth))
	require.Equal(t, "Token has expired", err.Error())
}

func TestToken__invalid(t *testing.T) {
	tokens, err := newResetTokens("secret")
	require.NoError(t, err)
	token, _, err := tokens.issue("a@x.com", time.Hour)
	require.NoError(t, err)

	other, err := newResetTokens("other-secret")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	// sign a token with alg=none
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, resetClaims{
		Email: "a@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	// no exp claim
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, resetClaims{Email: "a@x.com"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	// no email claim
	noEmail, _, err := tokens.issue("", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name     string
		verifier *resetTokens
		token    string
	}{
		{"empty", tokens, ""},
		{"garbage", tokens, "not-a-token"},
		{"tampered signature", tokens, parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]},
		{"tampered payload", tokens, parts[0] + ".eyJlbWFpbCI6ImJAeC5jb20ifQ." + parts[2]},
		{"wrong secret", other, token},
		{"alg none", tokens, unsigned},
		{"missing exp", tokens, noExpiry},
		{"missing email", tokens, noEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.verifier.verify(tc.token)
			require.Equal(t, errTokenInvalid, err)
		})
	}
}

func TestToken__emptySecret(t *testing.T) {
	if _, err := newResetTokens(""); err == nil {
		t.Error("expected error")
	}
}
