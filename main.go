// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moov-io/accounts/admin"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

var (
	httpAddr  = flag.String("http.addr", ":8000", "HTTP listen address")
	adminAddr = flag.String("admin.addr", ":9090", "Admin HTTP listen address")

	bcryptCost = flag.Int("bcrypt.cost", bcrypt.DefaultCost, "bcrypt cost used to hash passwords")
	envFile    = flag.String("env.file", ".env", "Optional dotenv file read before the environment")
)

const Version = "0.1.0-dev"

func main() {
	flag.Parse()

	// Setup logging, default to stderr
	var logger log.Logger
	logger = log.NewLogfmtLogger(os.Stderr)
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)
	logger.Log("startup", fmt.Sprintf("Starting accounts server version %s", Version))

	cfg, err := loadConfig(*envFile)
	if err != nil {
		logger.Log("config", err)
		os.Exit(1)
	}

	tokens, err := newResetTokens(cfg.SecretKey)
	if err != nil {
		logger.Log("config", err)
		os.Exit(1)
	}
	mailer, err := newResetMailer(cfg.Mail, cfg.ResetURL)
	if err != nil {
		logger.Log("config", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	repo, err := openRepository(ctx, logger, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Log("database", err)
		os.Exit(1)
	}
	defer func() {
		if err := repo.close(); err != nil {
			logger.Log("database", "problem closing store", "error", err)
		}
	}()

	tasks := newBackgroundTasks(log.With(logger, "component", "tasks"))

	hasher := newBcryptHasher(*bcryptCost)
	router := newRouter(logger, repo, hasher, &resetRouter{
		logger:   logger,
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		mailer:   mailer,
		tasks:    tasks,
		tokenTTL: cfg.ResetTokenTTL,
	})

	// Listen for application termination.
	errs := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errs <- fmt.Errorf("%s", <-c)
	}()

	readTimeout, _ := time.ParseDuration("30s")
	writTimeout, _ := time.ParseDuration("30s")
	idleTimeout, _ := time.ParseDuration("60s")

	serve := &http.Server{
		Addr:         *httpAddr,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writTimeout,
		IdleTimeout:  idleTimeout,
	}

	admin.Init()
	adminServer := admin.NewServer(*adminAddr)
	adminServer.AddHandler("/ready", readyRoute(logger, repo))
	go func() {
		logger.Log("admin", fmt.Sprintf("Starting admin service on %s", adminServer.BindAddress()))
		if err := adminServer.Listen(); err != nil {
			logger.Log("admin", "shutting down", "error", err)
		}
	}()

	go func() {
		logger.Log("transport", "HTTP", "addr", *httpAddr)
		if err := serve.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	if err := <-errs; err != nil {
		logger.Log("exit", err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := serve.Shutdown(ctx); err != nil {
		logger.Log("shutdown", err)
	}
	if err := adminServer.Shutdown(ctx); err != nil {
		logger.Log("admin", "shutdown", "error", err)
	}

	// let pending reset emails go out before the store closes
	tasks.wait()
}

// newRouter returns the public API routes.
func newRouter(logger log.Logger, repo accountRepository, hasher passwordHasher, resets *resetRouter) *mux.Router {
	router := mux.NewRouter()
	addPingRoute(router)
	addSignupRoutes(router, logger, hasher, repo)
	addLoginRoutes(router, logger, hasher, repo)
	resets.registerRoutes(router)
	return router
}

// readyRoute responds 200 when the account store can be reached.
func readyRoute(logger log.Logger, repo accountRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := repo.ping(ctx); err != nil {
			logger.Log("ready", err)
			encodeError(w, errors.New("account store unavailable"), http.StatusServiceUnavailable)
			return
		}
		writeMessage(w, "ready")
	}
}
