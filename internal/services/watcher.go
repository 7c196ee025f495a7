package services

import (
	"context"
	"log"
	"sync"
	"time"

	"caovalente_app_echo/internal/models"
)

// WatcherState is the confirmation state machine. A watcher is CREATED when
// the charge comes back from the provider, AWAITING_PAYMENT while polling,
// and ends in exactly one of CONFIRMED or ABANDONED.
type WatcherState string

const (
	WatcherCreated         WatcherState = "CREATED"
	WatcherAwaitingPayment WatcherState = "AWAITING_PAYMENT"
	WatcherConfirmed       WatcherState = "CONFIRMED"
	WatcherAbandoned       WatcherState = "ABANDONED"
)

// StatusCheckFunc asks the provider whether the charge is paid.
type StatusCheckFunc func(ctx context.Context) (*models.StatusResult, error)

// ConfirmedFunc runs at most once, on the first paid observation.
type ConfirmedFunc func(ctx context.Context)

// ConfirmationWatcher polls a single charge's status on a fixed interval
// until it is paid, torn down, or too old. The teardown path and the
// confirmation path share one stop guard, so the ticker is cancelled exactly
// once and the confirmation side effect cannot fire twice even if a poll
// tick races a teardown.
type ConfirmationWatcher struct {
	chargeID    string
	interval    time.Duration
	maxAge      time.Duration
	check       StatusCheckFunc
	onConfirmed ConfirmedFunc
	onDone      func() // registry cleanup hook

	mu    sync.Mutex
	state WatcherState

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewConfirmationWatcher builds a watcher in the CREATED state. Nothing
// happens until Start.
func NewConfirmationWatcher(chargeID string, interval, maxAge time.Duration, check StatusCheckFunc, onConfirmed ConfirmedFunc) *ConfirmationWatcher {
	return &ConfirmationWatcher{
		chargeID:    chargeID,
		interval:    interval,
		maxAge:      maxAge,
		check:       check,
		onConfirmed: onConfirmed,
		state:       WatcherCreated,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

func (w *ConfirmationWatcher) State() WatcherState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start transitions to AWAITING_PAYMENT and begins polling.
func (w *ConfirmationWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.state != WatcherCreated {
		w.mu.Unlock()
		return
	}
	w.state = WatcherAwaitingPayment
	w.mu.Unlock()

	go w.run(ctx)
}

func (w *ConfirmationWatcher) run(ctx context.Context) {
	defer close(w.doneCh)
	if w.onDone != nil {
		defer w.onDone()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	expiry := time.NewTimer(w.maxAge)
	defer expiry.Stop()

	for {
		select {
		case <-ticker.C:
			if w.poll(ctx) {
				return
			}
		case <-expiry.C:
			log.Printf("watcher: charge %s expired without confirmation", w.chargeID)
			w.Teardown()
			return
		case <-w.stopCh:
			return
		case <-ctx.Done():
			w.Teardown()
			return
		}
	}
}

// poll performs one status check. Returns true once the watcher reached a
// terminal state.
func (w *ConfirmationWatcher) poll(ctx context.Context) bool {
	result, err := w.check(ctx)
	if err != nil {
		log.Printf("watcher: status check for charge %s failed: %v", w.chargeID, err)
		return false
	}
	if !result.Paid {
		return false
	}

	// First paid observation wins; anything racing us (teardown, a second
	// tick) loses on the state check.
	w.mu.Lock()
	if w.state != WatcherAwaitingPayment {
		w.mu.Unlock()
		return true
	}
	w.state = WatcherConfirmed
	w.mu.Unlock()

	w.stopOnce.Do(func() { close(w.stopCh) })

	if w.onConfirmed != nil {
		w.onConfirmed(ctx)
	}
	return true
}

// Teardown cancels polling. Safe to call repeatedly and after confirmation;
// only an unconfirmed watcher transitions to ABANDONED.
func (w *ConfirmationWatcher) Teardown() {
	w.mu.Lock()
	if w.state == WatcherAwaitingPayment || w.state == WatcherCreated {
		w.state = WatcherAbandoned
	}
	w.mu.Unlock()

	w.stopOnce.Do(func() { close(w.stopCh) })
}

// Wait blocks until the polling goroutine exits. Used by shutdown and tests.
func (w *ConfirmationWatcher) Wait() {
	<-w.doneCh
}
