// Package ledger is the single shared marketplace ledger. Writes are serialized and atomic;
// reads run against immutable snapshots without locking.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoahotran/detasker/pkg/apperror"
	"github.com/khoahotran/detasker/pkg/logger"
)

// Entry is one journaled command. Replaying entries in seq order rebuilds the ledger.
type Entry struct {
	ID      uuid.UUID       `json:"id"`
	Seq     uint64          `json:"seq"`
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload"`
	// Policy is the rule set the command was accepted under. Nil on entries written
	// before policies were journaled; those replay under the current config.
	Policy *Policy   `json:"policy,omitempty"`
	At     time.Time `json:"at"`
}

// Journal durably records committed commands.
type Journal interface {
	Append(ctx context.Context, e Entry) error
	Load(ctx context.Context, afterSeq uint64) ([]Entry, error)
}

// outboxSize bounds how many committed batches may wait for the publisher before
// writers block.
const outboxSize = 1024

type batch struct {
	seq    uint64
	events []Event
}

type Ledger struct {
	cfg       Config
	journal   Journal
	publisher Publisher
	logger    logger.Logger

	mu    sync.Mutex
	state atomic.Pointer[state]

	outbox  chan batch
	drained chan struct{}
	closed  bool
}

// New builds an empty ledger. journal and publisher may be nil. With a publisher, a single
// goroutine delivers events in commit order until Close.
func New(cfg Config, journal Journal, publisher Publisher, log logger.Logger) *Ledger {
	cfg.normalize()
	if log == nil {
		log = logger.NewNopLogger()
	}
	l := &Ledger{
		cfg:       cfg,
		journal:   journal,
		publisher: publisher,
		logger:    log,
	}
	l.state.Store(newState())
	if publisher != nil {
		l.outbox = make(chan batch, outboxSize)
		l.drained = make(chan struct{})
		go l.runPublisher()
	}
	return l
}

func (l *Ledger) now() time.Time {
	return l.cfg.Clock().UTC().Truncate(time.Second)
}

func (l *Ledger) snapshot() *state {
	return l.state.Load()
}

// apply runs cmd against a fresh transaction and commits it only if every step succeeded.
func (l *Ledger) apply(ctx context.Context, cmd command) (any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	base := l.state.Load()
	t := newTx(base, &l.cfg, l.now())

	res, err := cmd.run(t)
	if err != nil {
		return nil, err
	}
	t.s.seq = base.seq + 1

	if l.journal != nil {
		entry, err := newEntry(t.s.seq, cmd, t.now, l.cfg.Policy())
		if err != nil {
			return nil, apperror.NewInternal("failed to encode ledger command", err)
		}
		if err := l.journal.Append(ctx, entry); err != nil {
			return nil, apperror.NewInternal("failed to journal ledger command", err)
		}
	}

	l.state.Store(t.s)
	l.publish(t.s.seq, t.events)
	return res, nil
}

func exec[R any](ctx context.Context, l *Ledger, cmd command) (R, error) {
	var zero R
	res, err := l.apply(ctx, cmd)
	if err != nil {
		return zero, err
	}
	return res.(R), nil
}

// publish queues a committed batch. Callers hold mu, so batches enter the outbox in seq order.
func (l *Ledger) publish(seq uint64, events []Event) {
	if l.outbox == nil || len(events) == 0 {
		return
	}
	if l.closed {
		l.logger.Warn("Ledger closed, dropping events", zap.Uint64("seq", seq), zap.Int("count", len(events)))
		return
	}
	for i := range events {
		events[i].ID = uuid.New()
		events[i].Seq = seq
	}
	l.outbox <- batch{seq: seq, events: events}
}

func (l *Ledger) runPublisher() {
	defer close(l.drained)
	for b := range l.outbox {
		if err := l.publisher.Publish(context.Background(), b.events); err != nil {
			l.logger.Error("Failed to publish ledger events", err, zap.Uint64("seq", b.seq), zap.Int("count", len(b.events)))
		}
	}
}

// Close stops accepting events and waits until every queued batch was handed to the
// publisher, or ctx ends. Writes after Close still commit but publish nothing.
func (l *Ledger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		if l.outbox != nil {
			close(l.outbox)
		}
	}
	l.mu.Unlock()

	if l.drained == nil {
		return nil
	}
	select {
	case <-l.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Replay applies journaled entries newer than the current snapshot. Each entry runs with its
// recorded timestamp and policy, so replay reproduces the original state exactly even after
// the arbiter or a policy setting changed.
func (l *Ledger) Replay(ctx context.Context) (int, error) {
	if l.journal == nil {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	base := l.state.Load()
	entries, err := l.journal.Load(ctx, base.seq)
	if err != nil {
		return 0, fmt.Errorf("load journal: %w", err)
	}

	cur := base
	for _, e := range entries {
		if e.Seq != cur.seq+1 {
			return 0, fmt.Errorf("journal gap: expected seq %d, got %d", cur.seq+1, e.Seq)
		}
		cmd, err := decodeCommand(e.Command, e.Payload)
		if err != nil {
			return 0, fmt.Errorf("decode entry %d: %w", e.Seq, err)
		}
		cfg := l.cfg
		if e.Policy != nil {
			cfg = cfg.withPolicy(*e.Policy)
		}
		t := newTx(cur, &cfg, e.At.UTC())
		if _, err := cmd.run(t); err != nil {
			return 0, fmt.Errorf("replay entry %d (%s): %w", e.Seq, e.Command, err)
		}
		t.s.seq = e.Seq
		cur = t.s
	}

	l.state.Store(cur)
	if len(entries) > 0 {
		l.logger.Info("Ledger replayed from journal", zap.Int("entries", len(entries)), zap.Uint64("seq", cur.seq))
	}
	return len(entries), nil
}

// Seq is the sequence number of the last committed command.
func (l *Ledger) Seq() uint64 {
	return l.snapshot().seq
}

func (l *Ledger) Config() Config {
	return l.cfg
}
