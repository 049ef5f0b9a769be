// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

var (
	backgroundTaskFailures = prometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Name: "background_task_failures",
		Help: "Count of background tasks which returned an error or panicked",
	}, []string{"task"})
)

// backgroundTasks runs work after a response has been written. Failures
// are logged and counted, never reported to the client.
type backgroundTasks struct {
	logger log.Logger
	wg     sync.WaitGroup
}

func newBackgroundTasks(logger log.Logger) *backgroundTasks {
	return &backgroundTasks{logger: logger}
}

func (t *backgroundTasks) add(name string, fn func() error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.run(fn); err != nil {
			backgroundTaskFailures.With("task", name).Add(1)
			t.logger.Log("task", name, "error", err)
			return
		}
		t.logger.Log("task", name, "status", "done")
	}()
}

func (t *backgroundTasks) run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// wait blocks until every added task has finished.
func (t *backgroundTasks) wait() {
	t.wg.Wait()
}
