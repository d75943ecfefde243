// Package await blocks a caller until an asynchronous valuation's result is
// present in the authoritative result store. A filtered notification handler
// provides the wake-up hint; store membership is the condition that actually
// decides completion, which makes the wait immune to lost or reordered
// notifications.
package await

import (
	"context"
	"sync"
	"time"

	"github.com/ontiyonke/quantdsl/internal/engine"
	apperrors "github.com/ontiyonke/quantdsl/internal/errors"
)

// DefaultPollTimeout bounds each blocking interval of the wait loop. On
// expiry the loop re-checks the store and blocks again; it is a retry
// boundary, not an error.
const DefaultPollTimeout = 2 * time.Second

// Wait blocks until the result identified by targetID appears in store, then
// returns it.
//
// The wait subscribes a handler that matches ResultCreated notifications for
// targetID and sets a one-shot readiness signal. The calling goroutine then
// loops: return immediately if the store already holds the result (covering
// the race where the result landed before the subscription was established),
// otherwise block up to pollTimeout on the signal, the timer or ctx, and
// re-check on every wake. ctx carries the total elapsed budget; its expiry is
// the only fatal outcome. The subscription is released on every exit path.
//
// Notifications may arrive on any producer goroutine; the signal channel is
// closed at most once behind a sync.Once.
func Wait(ctx context.Context, targetID string, store engine.ResultStore, stream engine.NotificationStream, pollTimeout time.Duration) (engine.Result, error) {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}

	ready := make(chan struct{})
	var once sync.Once
	sub := stream.Subscribe(func(event any) {
		created, ok := event.(engine.ResultCreated)
		if !ok || created.ID != targetID {
			return
		}
		once.Do(func() { close(ready) })
	})
	defer sub.Unsubscribe()

	timer := time.NewTimer(pollTimeout)
	defer timer.Stop()

	// readyCh is nilled after the first wake so a closed signal channel
	// cannot turn the loop into a busy spin.
	readyCh := ready
	for {
		if result, ok := store.Get(targetID); ok {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return engine.Result{}, apperrors.WrapError(ctx.Err(), "valuation %q did not complete", targetID)
		case <-readyCh:
			readyCh = nil
		case <-timer.C:
			timer.Reset(pollTimeout)
		}
	}
}
