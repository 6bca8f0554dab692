package application

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bnema/annotation-relay/internal/domain"
	"github.com/bnema/annotation-relay/internal/ports"
	"github.com/go-logr/logr"
)

var ErrRelayClosed = errors.New("relay is shut down")

const (
	DefaultPollTimeout      = 30 * time.Second
	DefaultMaxPollTimeout   = 120 * time.Second
	DefaultStaleAfter       = 24 * time.Hour
	DefaultSessionIDRetries = 16
)

type RelayConfig struct {
	DefaultPollTimeout time.Duration
	MaxPollTimeout     time.Duration
	StaleAfter         time.Duration
	RoutingStrategy    domain.RoutingStrategy
	SessionIDRetries   int
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		DefaultPollTimeout: DefaultPollTimeout,
		MaxPollTimeout:     DefaultMaxPollTimeout,
		StaleAfter:         DefaultStaleAfter,
		RoutingStrategy:    domain.RoutingFirstMatch,
		SessionIDRetries:   DefaultSessionIDRetries,
	}
}

func (c *RelayConfig) applyDefaults() {
	defaults := DefaultRelayConfig()
	if c.DefaultPollTimeout <= 0 {
		c.DefaultPollTimeout = defaults.DefaultPollTimeout
	}
	if c.MaxPollTimeout <= 0 {
		c.MaxPollTimeout = defaults.MaxPollTimeout
	}
	if c.MaxPollTimeout < c.DefaultPollTimeout {
		c.MaxPollTimeout = c.DefaultPollTimeout
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = defaults.StaleAfter
	}
	if c.RoutingStrategy == "" {
		c.RoutingStrategy = defaults.RoutingStrategy
	}
	if c.SessionIDRetries <= 0 {
		c.SessionIDRetries = defaults.SessionIDRetries
	}
}

type RelayOption func(*Relay)

func WithLogger(log logr.Logger) RelayOption {
	return func(r *Relay) {
		r.log = log
	}
}

func WithObserver(observer ports.RelayObserver) RelayOption {
	return func(r *Relay) {
		if observer != nil {
			r.observer = observer
		}
	}
}

func WithSessionIDGenerator(ids ports.SessionIDGenerator) RelayOption {
	return func(r *Relay) {
		if ids != nil {
			r.ids = ids
		}
	}
}

// Relay owns the live session table. Lock order is Relay.mu before
// sessionEntry.mu; the waiter slot of an entry is only read or written with
// the entry lock held, and whoever clears a non-nil slot resolves that waiter.
type Relay struct {
	cfg      RelayConfig
	repo     ports.SessionRepository
	archive  ports.AnnotationArchive
	clock    ports.Clock
	ids      ports.SessionIDGenerator
	observer ports.RelayObserver
	log      logr.Logger

	mu      sync.RWMutex
	entries map[domain.SessionID]*sessionEntry
	order   []domain.SessionID
	closed  bool

	persistMu sync.Mutex
}

type sessionEntry struct {
	mu      sync.Mutex
	session domain.Session
	waiter  *waiter
	removed bool
	closed  bool
}

func NewRelay(repo ports.SessionRepository, archive ports.AnnotationArchive, clock ports.Clock, cfg RelayConfig, opts ...RelayOption) *Relay {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	cfg.applyDefaults()

	r := &Relay{
		cfg:      cfg,
		repo:     repo,
		archive:  archive,
		clock:    clock,
		ids:      cryptoSessionIDs{},
		observer: ports.NopObserver{},
		log:      logr.Discard(),
		entries:  map[domain.SessionID]*sessionEntry{},
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Relay) Config() RelayConfig {
	return r.cfg
}

// Restore loads the persisted snapshot into an empty relay. Restored sessions
// start with empty queues.
func (r *Relay) Restore(ctx context.Context) (int, error) {
	if r.repo == nil {
		return 0, nil
	}

	sessions, err := r.repo.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load session snapshot: %w", err)
	}

	r.mu.Lock()
	restored := 0
	for _, session := range sessions {
		if session.ID == "" {
			continue
		}
		if _, exists := r.entries[session.ID]; exists {
			continue
		}
		snapshot := session.Snapshot()
		if snapshot.URLPrefixes == nil {
			snapshot.URLPrefixes = []string{}
		}
		r.entries[session.ID] = &sessionEntry{session: snapshot}
		r.order = append(r.order, session.ID)
		restored++
	}
	live := len(r.entries)
	r.mu.Unlock()

	r.observer.SessionsChanged(live)
	r.log.Info("restored sessions", "restored", restored, "live", live)
	return restored, nil
}

func (r *Relay) Register(ctx context.Context, consumerID string) (domain.SessionID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrRelayClosed
	}

	for attempt := 0; attempt < r.cfg.SessionIDRetries; attempt++ {
		id, err := r.ids.NewSessionID()
		if err != nil {
			r.mu.Unlock()
			return "", fmt.Errorf("generate session id: %w", err)
		}
		if _, taken := r.entries[id]; taken {
			r.log.V(1).Info("session id collision, regenerating", "sessionId", id, "attempt", attempt+1)
			continue
		}

		live := r.insertLocked(id, consumerID)
		r.mu.Unlock()

		r.afterRegister(ctx, id, consumerID, live)
		return id, nil
	}
	r.mu.Unlock()

	return "", fmt.Errorf("register session after %d attempts: %w", r.cfg.SessionIDRetries, domain.ErrRegistrationExhausted)
}

// Create registers a session under a caller-chosen id. An empty id falls back
// to Register.
func (r *Relay) Create(ctx context.Context, consumerID string, requestedID string) (domain.SessionID, error) {
	if strings.TrimSpace(requestedID) == "" {
		return r.Register(ctx, consumerID)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id, err := domain.ParseSessionID(requestedID)
	if err != nil {
		return "", fmt.Errorf("parse requested session id: %w", err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrRelayClosed
	}
	if _, taken := r.entries[id]; taken {
		r.mu.Unlock()
		return "", fmt.Errorf("create session %s: %w", id, domain.ErrSessionIDTaken)
	}
	live := r.insertLocked(id, consumerID)
	r.mu.Unlock()

	r.afterRegister(ctx, id, consumerID, live)
	return id, nil
}

func (r *Relay) insertLocked(id domain.SessionID, consumerID string) int {
	r.entries[id] = &sessionEntry{session: domain.NewSession(id, consumerID, r.clock.Now())}
	r.order = append(r.order, id)
	return len(r.entries)
}

func (r *Relay) afterRegister(ctx context.Context, id domain.SessionID, consumerID string, live int) {
	r.observer.SessionsChanged(live)
	r.log.Info("session registered", "sessionId", id, "consumerId", consumerID)
	r.persist(ctx)
}

func (r *Relay) Get(ctx context.Context, id domain.SessionID) (domain.SessionSummary, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionSummary{}, err
	}

	entry, err := r.lookup(id)
	if err != nil {
		return domain.SessionSummary{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.removed {
		return domain.SessionSummary{}, domain.ErrSessionNotFound
	}

	return entry.session.Summary(), nil
}

func (r *Relay) LinkURL(ctx context.Context, id domain.SessionID, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return domain.ErrInvalidURLPrefix
	}

	entry, err := r.lookup(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	if entry.removed {
		entry.mu.Unlock()
		return domain.ErrSessionNotFound
	}
	added := entry.session.AddPrefix(prefix)
	entry.session.Touch(r.clock.Now())
	entry.mu.Unlock()

	r.log.Info("linked url", "sessionId", id, "url", prefix, "added", added)
	r.persist(ctx)
	return nil
}

// List returns summaries in registration order.
func (r *Relay) List(ctx context.Context) ([]domain.SessionSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]domain.SessionSummary, 0, len(r.order))
	for _, id := range r.order {
		entry := r.entries[id]
		entry.mu.Lock()
		summaries = append(summaries, entry.session.Summary())
		entry.mu.Unlock()
	}

	return summaries, nil
}

func (r *Relay) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Remove evicts a session and resolves its parked poll, if any.
func (r *Relay) Remove(ctx context.Context, id domain.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return domain.ErrSessionNotFound
	}
	delete(r.entries, id)
	r.order = removeID(r.order, id)
	parked := entry.evict()
	live := len(r.entries)
	r.mu.Unlock()

	parked.resolve(pollDelivery{reason: domain.PollReasonSessionExpired})
	r.observer.SessionsChanged(live)
	r.log.Info("session removed", "sessionId", id)
	r.persist(ctx)
	return nil
}

// Close resolves every parked poll and writes a final snapshot. Later
// registrations and polls fail with ErrRelayClosed.
func (r *Relay) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true

	parked := make([]*waiter, 0)
	for _, id := range r.order {
		entry := r.entries[id]
		entry.mu.Lock()
		entry.closed = true
		if entry.waiter != nil {
			parked = append(parked, entry.waiter)
			entry.waiter = nil
		}
		entry.mu.Unlock()
	}
	r.mu.Unlock()

	for _, w := range parked {
		w.resolve(pollDelivery{reason: domain.PollReasonShutdown})
	}

	if r.repo == nil {
		return nil
	}
	if err := r.saveSnapshot(ctx); err != nil {
		return fmt.Errorf("save final session snapshot: %w", err)
	}

	return nil
}

func (r *Relay) lookup(id domain.SessionID) (*sessionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrRelayClosed
	}

	entry, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	return entry, nil
}

// handOffLocked gives the whole queue to the parked poll, if there is one and
// the queue is not empty. Callers hold e.mu.
func (e *sessionEntry) handOffLocked() bool {
	if e.waiter == nil || len(e.session.Pending) == 0 {
		return false
	}

	parked := e.waiter
	e.waiter = nil
	parked.resolve(pollDelivery{
		annotations: e.session.DrainPending(),
		reason:      domain.PollReasonDelivered,
	})
	return true
}

// evict marks the entry removed and detaches its waiter. Callers hold Relay.mu.
func (e *sessionEntry) evict() *waiter {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.removed = true
	parked := e.waiter
	e.waiter = nil
	return parked
}

// persist writes the snapshot and only logs failures; a lost snapshot must
// not fail the request that triggered it.
func (r *Relay) persist(ctx context.Context) {
	if r.repo == nil {
		return
	}

	if err := r.saveSnapshot(context.WithoutCancel(ctx)); err != nil {
		r.log.Error(err, "save session snapshot")
	}
}

func (r *Relay) saveSnapshot(ctx context.Context) error {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.RLock()
	snapshot := make([]domain.Session, 0, len(r.order))
	for _, id := range r.order {
		entry := r.entries[id]
		entry.mu.Lock()
		snapshot = append(snapshot, entry.session.Snapshot())
		entry.mu.Unlock()
	}
	r.mu.RUnlock()

	return r.repo.Save(ctx, snapshot)
}

func removeID(order []domain.SessionID, id domain.SessionID) []domain.SessionID {
	for i, existing := range order {
		if existing == id {
			return append(order[:i], order[i+1:]...)
		}
	}

	return order
}

type cryptoSessionIDs struct{}

func (cryptoSessionIDs) NewSessionID() (domain.SessionID, error) {
	return domain.RandomSessionID(rand.Reader)
}
