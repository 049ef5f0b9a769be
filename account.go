// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"time"
)

// Account is a registered user. It's stored as one row in the users table.
type Account struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	PhoneNumber int64     `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`

	// PasswordHash is the bcrypt hash of the account's password.
	PasswordHash string `json:"-"`

	// Reset is non-nil while a password reset is pending.
	Reset *PasswordReset `json:"-"`
}

// PasswordReset is the signed token sent to an account's email and when
// it stops being accepted.
type PasswordReset struct {
	Token     string
	ExpiresAt time.Time
}

// accountRepository persists accounts.
//
// Every write runs in its own transaction which is rolled back if any
// part of the write fails.
type accountRepository interface {
	// findByEmail returns the account with email (an exact match).
	// errNotFound is returned when no account matches.
	findByEmail(ctx context.Context, email string) (*Account, error)

	// findByEmailOrPhone returns an account matching either email or phone.
	findByEmailOrPhone(ctx context.Context, email string, phone int64) (*Account, error)

	// insert stores a new account and returns it with ID and CreatedAt
	// filled. An email or phone number already in use returns errConflict.
	insert(ctx context.Context, acct *Account) (*Account, error)

	// update persists the mutable fields of acct (names, password hash
	// and reset state).
	update(ctx context.Context, acct *Account) error

	// consumeReset sets the password hash and clears the reset state of
	// account id, only if its stored reset token equals token. The check
	// and write are one transaction, so a token is consumed at most once.
	// errNotFound is returned when no account holds token.
	consumeReset(ctx context.Context, id int64, token, passwordHash string) error

	ping(ctx context.Context) error
	close() error
}
