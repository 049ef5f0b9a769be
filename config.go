// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read once at startup and is read-only afterwards.
type Config struct {
	// DatabaseURL picks the account store, see openRepository.
	DatabaseURL string `env:"DATABASE_URL,required"`

	// SecretKey signs password reset tokens.
	SecretKey string `env:"SECRET_KEY,required"`

	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`

	// ResetURL is the frontend page reset emails link to. The token is
	// added as the "token" query parameter.
	ResetURL string `env:"RESET_URL" envDefault:"http://yourfrontend.com/reset-password"`

	Mail MailConfig `envPrefix:"MAIL_"`
}

// MailConfig holds the SMTP account reset emails are sent from.
type MailConfig struct {
	Username string `env:"USERNAME,required"`
	Password string `env:"PASSWORD,required"`
	From     string `env:"FROM,required"`
	FromName string `env:"FROM_NAME" envDefault:"Your Company Name"`
	Server   string `env:"SERVER" envDefault:"smtp.gmail.com"`
	Port     int    `env:"PORT" envDefault:"587"`

	// SSL dials with implicit TLS (usually port 465). Otherwise STARTTLS
	// is used when the server offers it.
	SSL bool `env:"SSL" envDefault:"false"`
}

// loadConfig reads an optional .env file into the process environment
// and then parses Config from it.
func loadConfig(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("problem reading .env: %v", err)
	}
	return parseConfig(nil)
}

// parseConfig builds a Config from environ, or the process environment
// when environ is nil.
func parseConfig(environ map[string]string) (*Config, error) {
	var cfg Config
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.ResetTokenTTL <= 0 {
		return fmt.Errorf("RESET_TOKEN_TTL must be positive, got %v", cfg.ResetTokenTTL)
	}
	if cfg.Mail.Port <= 0 || cfg.Mail.Port > 65535 {
		return fmt.Errorf("MAIL_PORT %d is invalid", cfg.Mail.Port)
	}
	if cfg.ResetURL == "" {
		return errors.New("RESET_URL must not be empty")
	}
	return nil
}
