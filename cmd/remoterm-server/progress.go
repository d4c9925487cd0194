package main

import (
	"fmt"
	"sync/atomic"
	"time"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// waitingSpinner prints an elapsed-time "waiting for connection" line while
// the server blocks in net.Listener.Accept.
//
// Usage:
//
//	s := newWaitingSpinner("Waiting for connection")
//	s.Start()
//	defer s.Stop()
//
// A waitingSpinner is single-use: Start may be called at most once, and
// Stop should be called exactly once after.
type waitingSpinner struct {
	prefix    string
	startTime time.Time
	stopChan  chan struct{}
	done      chan struct{}
	started   atomic.Bool
	stopped   atomic.Bool
}

func newWaitingSpinner(prefix string) *waitingSpinner {
	return &waitingSpinner{prefix: prefix}
}

// Start begins displaying progress updates in a background goroutine.
// Panics if called more than once.
func (s *waitingSpinner) Start() {
	if !s.started.CompareAndSwap(false, true) {
		panic("waitingSpinner.Start called more than once")
	}

	s.startTime = time.Now()
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	fmt.Printf("\r%s...   ", s.prefix)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(progressUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				seconds := int(time.Since(s.startTime).Seconds())
				fmt.Printf("\r%s... (%ds)   ", s.prefix, seconds)
			}
		}
	}()
}

// Stop stops the display and clears the progress line. Safe to call
// multiple times, and even if Start was never called, in which case it is a
// no-op; only the first call after a successful Start has an effect.
func (s *waitingSpinner) Stop() {
	if !s.started.Load() {
		return
	}
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}
	close(s.stopChan)
	<-s.done
	fmt.Print(clearLineSequence)
}
