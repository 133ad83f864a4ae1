// Copyright 2026 Playforge
// Licensed under the EUPL-1.2

package verification

import (
	"context"
	"log/slog"
	"time"
)

// CleanupFunc is one unit of periodic maintenance work.
type CleanupFunc func(ctx context.Context) error

// Janitor runs cleanup tasks on a fixed interval. It is created and
// stopped by the process supervisor; nothing starts it as a side effect.
type Janitor struct {
	interval time.Duration
	tasks    []CleanupFunc
	stop     chan struct{}
	done     chan struct{}
}

// NewJanitor creates a Janitor. It does not start until Start is called.
func NewJanitor(interval time.Duration, tasks ...CleanupFunc) *Janitor {
	return &Janitor{
		interval: interval,
		tasks:    tasks,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the cleanup loop in a goroutine.
func (j *Janitor) Start() {
	go j.loop()
}

// Stop halts the loop and waits for an in-flight run to finish.
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}

func (j *Janitor) loop() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			j.runOnce()
		}
	}
}

func (j *Janitor) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, task := range j.tasks {
		if err := task(ctx); err != nil {
			slog.Error("cleanup task failed", "error", err)
		}
	}
}
