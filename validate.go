// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = validator.New()
)

func checkEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return validationError("value is not a valid email address")
	}
	return nil
}

func checkPassword(pass string) error {
	if pass == "" {
		return validationError("password must not be empty")
	}
	return nil
}

// checkPhone verifies phone is 10 to 15 ASCII digits and returns its
// numeric form, which is what we store.
func checkPhone(phone string) (int64, error) {
	if err := validate.Var(phone, "required,number,min=10,max=15"); err != nil {
		return 0, validationError("Phone number must be numeric and between 10 to 15 digits long")
	}
	n, err := strconv.ParseInt(phone, 10, 64)
	if err != nil {
		return 0, validationError("Phone number must be numeric and between 10 to 15 digits long")
	}
	return n, nil
}

func checkName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return validationError("%s must not be empty", field)
	}
	return nil
}
