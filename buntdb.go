// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/tidwall/buntdb"
)

// buntAccountRepository stores accounts in BuntDB (https://github.com/tidwall/buntdb).
//
// Each account is a JSON value under "account:<id>". Uniqueness of email and
// phone number is kept with "email:<email>" and "phone:<phone>" keys pointing
// back at the account's id, written in the same transaction as the account.
type buntAccountRepository struct {
	db     *buntdb.DB
	logger log.Logger
}

const buntSequenceKey = "account_seq"

// buntAccount is the stored form of an Account.
type buntAccount struct {
	ID                int64      `json:"id"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Email             string     `json:"email"`
	PhoneNumber       int64      `json:"phone_number"`
	Password          string     `json:"password"`
	CreatedAt         time.Time  `json:"created_at"`
	ResetToken        string     `json:"reset_token,omitempty"`
	ResetTokenExpires *time.Time `json:"reset_token_expires,omitempty"`
}

func openBuntRepository(logger log.Logger, path string) (*buntAccountRepository, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("problem opening buntdb %s: %v", path, err)
	}
	logger.Log("database", fmt.Sprintf("opened buntdb %s", path))
	return &buntAccountRepository{
		db:     db,
		logger: logger,
	}, nil
}

func accountKey(id int64) string { return fmt.Sprintf("account:%d", id) }
func emailKey(email string) string { return fmt.Sprintf("email:%s", email) }
func phoneKey(phone int64) string { return fmt.Sprintf("phone:%d", phone) }

func (r *buntAccountRepository) read(tx *buntdb.Tx, indexKey string) (*Account, error) {
	id, err := tx.Get(indexKey)
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("problem reading %s: %v", indexKey, err)
	}
	v, err := tx.Get("account:" + id)
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("problem reading account %s: %v", id, err)
	}
	var stored buntAccount
	if err := json.Unmarshal([]byte(v), &stored); err != nil {
		return nil, fmt.Errorf("problem decoding account %s: %v", id, err)
	}
	return stored.account(), nil
}

func (r *buntAccountRepository) findByEmail(_ context.Context, email string) (*Account, error) {
	var acct *Account
	err := r.db.View(func(tx *buntdb.Tx) error {
		var err error
		acct, err = r.read(tx, emailKey(email))
		return err
	})
	return acct, err
}

func (r *buntAccountRepository) findByEmailOrPhone(_ context.Context, email string, phone int64) (*Account, error) {
	var acct *Account
	err := r.db.View(func(tx *buntdb.Tx) error {
		var err error
		acct, err = r.read(tx, emailKey(email))
		if errors.Is(err, errNotFound) {
			acct, err = r.read(tx, phoneKey(phone))
		}
		return err
	})
	return acct, err
}

func (r *buntAccountRepository) insert(_ context.Context, acct *Account) (*Account, error) {
	var out *Account
	err := r.db.Update(func(tx *buntdb.Tx) error {
		for _, key := range []string{emailKey(acct.Email), phoneKey(acct.PhoneNumber)} {
			if _, err := tx.Get(key); err == nil {
				return fmt.Errorf("email or phone number already registered: %w", errConflict)
			} else if !errors.Is(err, buntdb.ErrNotFound) {
				return err
			}
		}

		id, err := nextSequence(tx)
		if err != nil {
			return err
		}
		stored := newBuntAccount(acct)
		stored.ID = id
		stored.CreatedAt = time.Now().UTC()
		stored.ResetToken, stored.ResetTokenExpires = "", nil

		if err := writeAccount(tx, stored); err != nil {
			return err
		}
		ref := strconv.FormatInt(id, 10)
		if _, _, err := tx.Set(emailKey(stored.Email), ref, nil); err != nil {
			return err
		}
		if _, _, err := tx.Set(phoneKey(stored.PhoneNumber), ref, nil); err != nil {
			return err
		}
		out = stored.account()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *buntAccountRepository) update(_ context.Context, acct *Account) error {
	return r.db.Update(func(tx *buntdb.Tx) error {
		v, err := tx.Get(accountKey(acct.ID))
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return errNotFound
			}
			return err
		}
		var stored buntAccount
		if err := json.Unmarshal([]byte(v), &stored); err != nil {
			return fmt.Errorf("problem decoding account %d: %v", acct.ID, err)
		}

		// email, phone number and created_at are immutable
		next := newBuntAccount(acct)
		next.Email, next.PhoneNumber, next.CreatedAt = stored.Email, stored.PhoneNumber, stored.CreatedAt
		return writeAccount(tx, next)
	})
}

func (r *buntAccountRepository) consumeReset(_ context.Context, id int64, token, passwordHash string) error {
	return r.db.Update(func(tx *buntdb.Tx) error {
		v, err := tx.Get(accountKey(id))
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return errNotFound
			}
			return err
		}
		var stored buntAccount
		if err := json.Unmarshal([]byte(v), &stored); err != nil {
			return fmt.Errorf("problem decoding account %d: %v", id, err)
		}
		if stored.ResetToken == "" || stored.ResetToken != token {
			return errNotFound
		}
		stored.Password = passwordHash
		stored.ResetToken, stored.ResetTokenExpires = "", nil
		return writeAccount(tx, &stored)
	})
}

func (r *buntAccountRepository) ping(_ context.Context) error {
	return r.db.View(func(tx *buntdb.Tx) error {
		_, err := tx.Len()
		return err
	})
}

func (r *buntAccountRepository) close() error {
	return r.db.Close()
}

func nextSequence(tx *buntdb.Tx) (int64, error) {
	var n int64
	v, err := tx.Get(buntSequenceKey)
	switch {
	case err == nil:
		n, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("problem reading %s: %v", buntSequenceKey, err)
		}
	case !errors.Is(err, buntdb.ErrNotFound):
		return 0, err
	}
	n++
	if _, _, err := tx.Set(buntSequenceKey, strconv.FormatInt(n, 10), nil); err != nil {
		return 0, err
	}
	return n, nil
}

func writeAccount(tx *buntdb.Tx, stored *buntAccount) error {
	bs, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	_, _, err = tx.Set(accountKey(stored.ID), string(bs), nil)
	return err
}

func newBuntAccount(acct *Account) *buntAccount {
	stored := &buntAccount{
		ID:          acct.ID,
		FirstName:   acct.FirstName,
		LastName:    acct.LastName,
		Email:       acct.Email,
		PhoneNumber: acct.PhoneNumber,
		Password:    acct.PasswordHash,
		CreatedAt:   acct.CreatedAt,
	}
	if acct.Reset != nil {
		expires := acct.Reset.ExpiresAt.UTC()
		stored.ResetToken = acct.Reset.Token
		stored.ResetTokenExpires = &expires
	}
	return stored
}

func (b *buntAccount) account() *Account {
	acct := &Account{
		ID:           b.ID,
		FirstName:    b.FirstName,
		LastName:     b.LastName,
		Email:        b.Email,
		PhoneNumber:  b.PhoneNumber,
		PasswordHash: b.Password,
		CreatedAt:    b.CreatedAt,
	}
	if b.ResetToken != "" && b.ResetTokenExpires != nil {
		acct.Reset = &PasswordReset{
			Token:     b.ResetToken,
			ExpiresAt: *b.ResetTokenExpires,
		}
	}
	return acct
}
