package dataview

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ghxstship/atlvs/internal/store"
)

// State is the lifecycle state of a subscription.
type State int

const (
	// StateUnbound means no workspace is attached yet; the subscription
	// serves nothing.
	StateUnbound State = iota

	// StateBound means the subscription is attached to a workspace and
	// delivering snapshots.
	StateBound

	// StateTerminated means the subscription was torn down. Terminated
	// subscriptions never deliver again.
	StateTerminated
)

const (
	feedRetryAttempts = 3
	feedRetryBackoff  = 100 * time.Millisecond
)

// Handler receives view snapshots. It is called from the subscription's
// own goroutine, never concurrently with itself.
type Handler func(Result)

// Subscription keeps one view live for one workspace. It moves from
// Unbound through Bound to Terminated and never back.
type Subscription struct {
	manager *Manager
	view    ViewConfig
	handler Handler

	mu          sync.Mutex
	state       State
	feedDown    bool
	stale       bool
	workspaceID string
	lastApplied uint64
	feed        store.Feed
	cancel      context.CancelFunc
	done        chan struct{}
}

// Subscribe attaches a handler to a view. With a workspace id the
// subscription is bound immediately; with an empty id it stays unbound
// until Bind is called. Subscribing twice to the same bound
// (view, workspace) pair returns the existing subscription.
func (m *Manager) Subscribe(ctx context.Context, view, workspaceID string, handler Handler) (*Subscription, error) {
	cfg, ok := Lookup(view)
	if !ok {
		// Unknown views get an inert subscription. It serves one empty
		// snapshot and never reaches the store.
		log.Warn().Str("view", view).Msg("Unknown view requested")

		sub := &Subscription{
			manager: m,
			view:    ViewConfig{View: view},
			handler: handler,
			state:   StateUnbound,
			done:    make(chan struct{}),
		}
		close(sub.done)

		if workspaceID != "" {
			handler(Result{View: view, Rows: []store.Row{}})
		}

		return sub, nil
	}

	if workspaceID != "" {
		m.mu.Lock()
		if existing, ok := m.subs[subKey(cfg.View, workspaceID)]; ok {
			m.mu.Unlock()

			return existing, nil
		}
		m.mu.Unlock()
	}

	sub := &Subscription{
		manager: m,
		view:    cfg,
		handler: handler,
		state:   StateUnbound,
		done:    make(chan struct{}),
	}

	if workspaceID == "" {
		close(sub.done)

		return sub, nil
	}

	if err := sub.Bind(ctx, workspaceID); err != nil {
		return nil, err
	}

	return sub, nil
}

// Bind attaches an unbound subscription to a workspace and starts
// delivery. Binding a bound subscription fails; binding a terminated one
// fails permanently.
func (s *Subscription) Bind(ctx context.Context, workspaceID string) error {
	if s.view.Collection == "" {
		// Inert subscription over an unknown view. Serve empty and stay
		// unbound.
		s.handler(Result{View: s.view.View, Rows: []store.Row{}})

		return nil
	}

	s.mu.Lock()

	switch s.state {
	case StateTerminated:
		s.mu.Unlock()

		return ErrTerminated
	case StateBound:
		s.mu.Unlock()

		return ErrAlreadyBound
	case StateUnbound:
	}

	s.workspaceID = workspaceID
	s.state = StateBound
	s.done = make(chan struct{})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.mu.Unlock()

	key := subKey(s.view.View, workspaceID)

	s.manager.mu.Lock()
	if existing, ok := s.manager.subs[key]; ok && existing != s {
		s.manager.mu.Unlock()
		cancel()

		s.mu.Lock()
		s.state = StateTerminated
		close(s.done)
		s.mu.Unlock()

		return ErrAlreadyBound
	}
	s.manager.subs[key] = s
	s.manager.mu.Unlock()

	feed, err := s.openFeed(runCtx)
	if err != nil {
		// Live updates are unavailable but snapshots still work; the
		// subscription serves in degraded mode.
		log.Warn().Err(err).
			Str("view", s.view.View).
			Str("workspace_id", workspaceID).
			Msg("change feed unavailable, subscription degraded")

		s.mu.Lock()
		s.feedDown = true
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.feed = feed
	s.mu.Unlock()

	go s.run(runCtx)

	return nil
}

// Close tears the subscription down and releases its feed. Closing an
// already terminated subscription is a no-op.
func (s *Subscription) Close() error {
	s.mu.Lock()

	if s.state == StateTerminated {
		s.mu.Unlock()

		return nil
	}

	wasBound := s.state == StateBound
	s.state = StateTerminated
	cancel := s.cancel
	feed := s.feed
	done := s.done
	workspaceID := s.workspaceID
	s.feed = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if feed != nil {
		if err := feed.Close(); err != nil {
			log.Warn().Err(err).Str("view", s.view.View).Msg("failed to close change feed")
		}
	}

	if wasBound {
		<-done

		s.manager.mu.Lock()
		key := subKey(s.view.View, workspaceID)
		if s.manager.subs[key] == s {
			delete(s.manager.subs, key)
		}
		s.manager.mu.Unlock()
	}

	return nil
}

// State reports the current lifecycle state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Degraded reports whether live updates are unavailable or the last
// refresh failed. Snapshots in degraded mode may be stale.
func (s *Subscription) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.feedDown || s.stale
}

func (s *Subscription) openFeed(ctx context.Context) (store.Feed, error) {
	var err error

	backoff := feedRetryBackoff

	for attempt := 0; attempt < feedRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}

			backoff *= 2
		}

		var feed store.Feed

		feed, err = s.manager.store.ChangeFeed(ctx, s.view.Collection, s.workspaceID)
		if err == nil {
			return feed, nil
		}
	}

	return nil, err
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)

	s.refresh(ctx)

	s.mu.Lock()
	feed := s.feed
	s.mu.Unlock()

	if feed == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-feed.Events():
			if !ok {
				feed = s.reconnect(ctx)
				if feed == nil {
					return
				}

				continue
			}

			changeEventsTotal.WithLabelValues(s.view.View).Inc()
			s.refresh(ctx)
		}
	}
}

// reconnect replaces a lost change feed. The subscription serves in
// degraded mode while reopening; if the feed cannot be reopened the
// subscription terminates and releases its key.
func (s *Subscription) reconnect(ctx context.Context) store.Feed {
	s.mu.Lock()
	if s.state != StateBound {
		s.mu.Unlock()

		return nil
	}
	s.feedDown = true
	s.feed = nil
	s.mu.Unlock()

	log.Warn().
		Str("view", s.view.View).
		Str("workspace_id", s.workspaceID).
		Msg("change feed lost, reopening")

	feed, err := s.openFeed(ctx)
	if err != nil {
		log.Error().Err(err).
			Str("view", s.view.View).
			Str("workspace_id", s.workspaceID).
			Msg("change feed could not be reopened, terminating subscription")

		s.terminate()

		return nil
	}

	s.mu.Lock()
	if s.state != StateBound {
		s.mu.Unlock()

		if cerr := feed.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("view", s.view.View).Msg("failed to close change feed")
		}

		return nil
	}
	s.feed = feed
	s.feedDown = false
	s.mu.Unlock()

	// Catch up on anything missed while the feed was down.
	s.refresh(ctx)

	return feed
}

// terminate tears the subscription down from inside its own goroutine
// when the feed is unrecoverable.
func (s *Subscription) terminate() {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()

		return
	}

	s.state = StateTerminated
	cancel := s.cancel
	workspaceID := s.workspaceID
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	s.manager.mu.Lock()
	key := subKey(s.view.View, workspaceID)
	if s.manager.subs[key] == s {
		delete(s.manager.subs, key)
	}
	s.manager.mu.Unlock()
}

// refresh fetches a fresh snapshot and hands it to the handler unless a
// newer fetch already applied.
func (s *Subscription) refresh(ctx context.Context) {
	result, err := s.manager.Query(ctx, s.view.View, s.workspaceID, nil)
	if err != nil {
		log.Warn().Err(err).
			Str("view", s.view.View).
			Str("workspace_id", s.workspaceID).
			Msg("view refresh failed")

		s.mu.Lock()
		s.stale = true
		s.mu.Unlock()

		return
	}

	s.mu.Lock()

	if s.state != StateBound {
		s.mu.Unlock()

		return
	}

	if result.Seq <= s.lastApplied {
		s.mu.Unlock()
		staleDiscardsTotal.WithLabelValues(s.view.View).Inc()

		return
	}

	s.lastApplied = result.Seq
	s.stale = false
	s.mu.Unlock()

	s.handler(result)
}
