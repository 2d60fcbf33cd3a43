// Package turn owns the per-user turn lifecycle: it holds the session slot,
// drives the provider call, forwards fragments in order, and updates history
// only for turns that complete cleanly.
package turn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/antoniostano/aria/internal/history"
	"github.com/antoniostano/aria/internal/memory"
	"github.com/antoniostano/aria/internal/observability"
	"github.com/antoniostano/aria/internal/prompt"
	"github.com/antoniostano/aria/internal/provider"
)

type state string

const (
	stateAssembling       state = "assembling"
	stateAwaitingProvider state = "awaiting_provider"
	stateStreaming        state = "streaming"
	stateFinalizing       state = "finalizing"
	stateCompleted        state = "completed"
	stateFailed           state = "failed"
	stateCancelled        state = "cancelled"
)

const rememberWriteTimeout = 10 * time.Second

// Orchestrator runs turns. One instance serves all users; per-user exclusion
// comes from the session registry.
type Orchestrator struct {
	sessions    *Registry
	history     *history.Store
	gateway     *memory.Gateway
	builder     *prompt.Builder
	adapter     provider.Adapter
	metrics     *observability.Metrics
	turnTimeout time.Duration
	triggers    []string

	background sync.WaitGroup
}

func NewOrchestrator(
	hist *history.Store,
	gateway *memory.Gateway,
	builder *prompt.Builder,
	adapter provider.Adapter,
	metrics *observability.Metrics,
	turnTimeout time.Duration,
	triggers []string,
) *Orchestrator {
	if turnTimeout <= 0 {
		turnTimeout = 60 * time.Second
	}
	return &Orchestrator{
		sessions:    NewRegistry(),
		history:     hist,
		gateway:     gateway,
		builder:     builder,
		adapter:     adapter,
		metrics:     metrics,
		turnTimeout: turnTimeout,
		triggers:    triggers,
	}
}

// CancelActive cancels the user's in-flight turn, if any.
func (o *Orchestrator) CancelActive(userID string) bool {
	return o.sessions.CancelActive(userID)
}

// ActiveTurns reports how many session slots are currently held.
func (o *Orchestrator) ActiveTurns() int {
	return o.sessions.ActiveCount()
}

// WaitBackground blocks until pending best-effort memory writes finish. Used
// on shutdown and in tests; the turn path never waits on it.
func (o *Orchestrator) WaitBackground() {
	o.background.Wait()
}

// Run executes one turn. Fragments are forwarded to onFragment in provider
// order; onFragment returning an error is treated as a caller disconnect. On
// success the completed turn has been appended to history. On any error no
// partial output is recorded and the session slot has been released.
func (o *Orchestrator) Run(ctx context.Context, userID, userText string, onFragment func(string) error) (history.Turn, error) {
	turnCtx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	sess, err := o.sessions.Acquire(userID, cancel)
	if err != nil {
		o.metrics.TurnEvents.WithLabelValues("rejected_concurrent").Inc()
		return history.Turn{}, err
	}
	o.metrics.ActiveTurns.Set(float64(o.sessions.ActiveCount()))
	defer func() {
		o.sessions.Release(sess)
		o.metrics.ActiveTurns.Set(float64(o.sessions.ActiveCount()))
	}()

	o.transition(sess, stateAssembling)
	pc := o.builder.Assemble(turnCtx, userID, userText)
	if pc.Degraded {
		o.metrics.RecallEvents.WithLabelValues("degraded").Inc()
	} else {
		o.metrics.RecallEvents.WithLabelValues("ok").Inc()
	}

	req := provider.Request{UserID: userID, Messages: toMessages(pc)}

	o.transition(sess, stateAwaitingProvider)
	started := time.Now()
	frags := make(chan string, 16)
	type result struct {
		err error
	}
	resCh := make(chan result, 1)

	go func() {
		_, err := o.adapter.StreamResponse(turnCtx, req, func(delta string) error {
			select {
			case frags <- delta:
				return nil
			case <-turnCtx.Done():
				return turnCtx.Err()
			}
		})
		close(frags)
		resCh <- result{err: err}
	}()

	var full strings.Builder
	var forwardErr error
	first := true
	for frag := range frags {
		if first {
			first = false
			o.transition(sess, stateStreaming)
			o.metrics.ObserveFirstFragmentLatency(time.Since(started))
		}
		if forwardErr != nil {
			continue
		}
		if err := onFragment(frag); err != nil {
			// The caller is gone; stop the provider and drain.
			forwardErr = err
			cancel()
			continue
		}
		full.WriteString(frag)
	}
	res := <-resCh

	if forwardErr != nil {
		return history.Turn{}, o.terminate(sess, stateCancelled, fmt.Errorf("%w: %v", ErrTurnCancelled, forwardErr))
	}
	if res.err != nil {
		return history.Turn{}, o.classify(sess, res.err)
	}

	o.transition(sess, stateFinalizing)
	completed := history.Turn{
		UserID:        userID,
		UserText:      userText,
		AssistantText: full.String(),
		CreatedAt:     time.Now().UTC(),
	}
	o.history.Append(userID, completed)

	if shouldRemember(o.triggers, userText) {
		summary := summarizeExchange(userText, completed.AssistantText)
		o.background.Add(1)
		go func() {
			defer o.background.Done()
			wctx, wcancel := context.WithTimeout(context.Background(), rememberWriteTimeout)
			defer wcancel()
			if _, err := o.gateway.Remember(wctx, userID, summary, rememberImportance); err != nil {
				log.Printf("turn %s: memory write-back failed: %v", sess.ID, err)
			}
		}()
	}

	o.transition(sess, stateCompleted)
	o.metrics.TurnEvents.WithLabelValues("completed").Inc()
	return completed, nil
}

func (o *Orchestrator) classify(sess *Session, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		o.metrics.ProviderErrors.WithLabelValues("timeout").Inc()
		return o.terminate(sess, stateFailed, fmt.Errorf("%w: %v", ErrTurnTimeout, err))
	case errors.Is(err, context.Canceled):
		return o.terminate(sess, stateCancelled, ErrTurnCancelled)
	default:
		o.metrics.ProviderErrors.WithLabelValues("provider").Inc()
		return o.terminate(sess, stateFailed, fmt.Errorf("%w: %v", ErrProviderFailure, err))
	}
}

func (o *Orchestrator) terminate(sess *Session, st state, err error) error {
	o.transition(sess, st)
	switch st {
	case stateCancelled:
		o.metrics.TurnEvents.WithLabelValues("cancelled").Inc()
	default:
		o.metrics.TurnEvents.WithLabelValues("failed").Inc()
	}
	return err
}

func (o *Orchestrator) transition(sess *Session, st state) {
	log.Printf("turn %s user %s: %s", sess.ID, sess.UserID, st)
}

func toMessages(pc prompt.Context) []provider.Message {
	out := make([]provider.Message, 0, len(pc.Segments))
	for _, seg := range pc.Segments {
		out = append(out, provider.Message{Role: string(seg.Role), Content: seg.Text})
	}
	return out
}
