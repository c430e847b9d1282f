package state

import (
	"sync"

	"github.com/google/uuid"

	"github.com/go-weft/weft/pkg/reconcile"
)

// TicketStatus is the lifecycle phase of a queued mutation.
type TicketStatus int

const (
	// TicketPending means the mutation is queued but not yet applied.
	TicketPending TicketStatus = iota
	// TicketRunning means the drain loop has claimed the mutation and its
	// updater is executing; cancellation can no longer stop it.
	TicketRunning
	// TicketApplied means the mutation ran and its DirtySet was handed to
	// the renderer.
	TicketApplied
	// TicketFailed means the mutation ran and was rejected; the state value
	// is unchanged.
	TicketFailed
	// TicketCancelled means the mutation was cancelled before it ran. A
	// cancelled mutation never applies its update.
	TicketCancelled
)

func (s TicketStatus) String() string {
	switch s {
	case TicketRunning:
		return "running"
	case TicketApplied:
		return "applied"
	case TicketFailed:
		return "failed"
	case TicketCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// Ticket is the handle returned for every enqueued mutation. It is the only
// way a caller observes the mutation's outcome, and its Cancel method is the
// cancellation point for mutations fed by asynchronous work.
type Ticket struct {
	id uuid.UUID

	mu     sync.Mutex
	status TicketStatus
	dirty  *reconcile.DirtySet
	err    error
	done   chan struct{}
}

// NewTicket creates a pending ticket. Called by the engine when a mutation
// is enqueued.
func NewTicket() *Ticket {
	return &Ticket{
		id:   uuid.New(),
		done: make(chan struct{}),
	}
}

// ID returns the ticket's unique identifier.
func (t *Ticket) ID() uuid.UUID { return t.id }

// Done returns a channel closed once the ticket reaches a terminal status.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Status returns the current lifecycle phase.
func (t *Ticket) Status() TicketStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Begin atomically claims a pending mutation for application, moving it to
// TicketRunning. It returns false when cancellation (or a terminal
// resolution) got there first; once it returns true, Cancel always returns
// false. Called by the engine's drain loop immediately before the updater
// runs.
func (t *Ticket) Begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TicketPending {
		return false
	}
	t.status = TicketRunning
	return true
}

// Cancel marks a pending mutation cancelled and reports whether it won the
// race: once Cancel returns true the mutation is guaranteed never to apply.
// Cancelling a running, applied, failed, or already cancelled ticket returns
// false.
func (t *Ticket) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TicketPending {
		return false
	}
	t.status = TicketCancelled
	close(t.done)
	return true
}

// Dirty returns the DirtySet produced by an applied mutation, nil otherwise.
func (t *Ticket) Dirty() *reconcile.DirtySet {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

// Err returns the rejection cause of a failed mutation, nil otherwise.
func (t *Ticket) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Resolve records the mutation's outcome and wakes Done waiters. Called by
// the engine's drain loop; a ticket already cancelled or resolved is left
// untouched.
func (t *Ticket) Resolve(dirty *reconcile.DirtySet, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TicketPending && t.status != TicketRunning {
		return
	}
	if err != nil {
		t.status = TicketFailed
		t.err = err
	} else {
		t.status = TicketApplied
		t.dirty = dirty
	}
	close(t.done)
}
