// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"golang.org/x/crypto/bcrypt"
)

type passwordHasher interface {
	// hash returns a one-way hash of pass. A random salt is embedded in
	// the output, so hashing the same pass twice yields different results.
	hash(pass string) (string, error)

	// verify reports if pass produced hashed. A mismatch or a malformed
	// hash is reported as false, never as an error.
	verify(pass string, hashed string) bool
}

type bcryptHasher struct {
	cost int
}

func newBcryptHasher(cost int) *bcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (h *bcryptHasher) hash(pass string) (string, error) {
	bs, err := bcrypt.GenerateFromPassword([]byte(pass), h.cost)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

func (h *bcryptHasher) verify(pass string, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pass)) == nil
}
