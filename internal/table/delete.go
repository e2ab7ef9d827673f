package table

import (
	"context"
	"time"
)

// DeleteState is the row delete flow:
// Idle -> ConfirmPending -> Deleting -> Deleted|Failed -> Idle
type DeleteState int

const (
	Idle DeleteState = iota
	ConfirmPending
	Deleting
	Deleted
	Failed
)

func (s DeleteState) String() string {
	switch s {
	case ConfirmPending:
		return "confirm-pending"
	case Deleting:
		return "deleting"
	case Deleted:
		return "deleted"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

type Notification struct {
	Kind    NotificationKind
	Message string
	ShownAt time.Time
}

// RequestDelete asks for confirmation before deleting the pass
func (c *Controller) RequestDelete(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deleteState == Deleting {
		return ErrDeleteInProgress
	}
	if !c.inSnapshot(id) {
		return ErrPassNotInSnapshot
	}
	c.pendingID = id
	c.transition(ConfirmPending)
	return nil
}

// CancelDelete abandons a pending confirmation
func (c *Controller) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteState == ConfirmPending {
		c.pendingID = 0
		c.transition(Idle)
	}
}

// ConfirmDelete deletes the pending pass and returns the outcome, Deleted or Failed.
// On success the row leaves the snapshot without a re-fetch.
func (c *Controller) ConfirmDelete(ctx context.Context) (DeleteState, error) {
	c.mu.Lock()
	if c.deleteState != ConfirmPending {
		state := c.deleteState
		c.mu.Unlock()
		return state, ErrNoPendingDelete
	}
	id := c.pendingID
	c.transition(Deleting)
	c.mu.Unlock()

	err := c.deleter.DeletePass(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	outcome := Deleted
	if err != nil {
		outcome = Failed
		c.notify(NotificationError, msgDeleteFailed)
	} else {
		c.removeLocal(id)
		c.notify(NotificationSuccess, msgDeleteSucceeded)
	}
	c.transition(outcome)

	c.pendingID = 0
	c.transition(Idle)
	return outcome, err
}

func (c *Controller) DeleteState() DeleteState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteState
}

func (c *Controller) PendingDelete() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingID
}

// Notification returns the current banner, or nil once it has been shown for NotificationTTL
func (c *Controller) Notification() *Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notification == nil {
		return nil
	}
	if c.now().Sub(c.notification.ShownAt) >= NotificationTTL {
		c.notification = nil
		return nil
	}
	n := *c.notification
	return &n
}

func (c *Controller) DismissNotification() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notification = nil
}

func (c *Controller) notify(kind NotificationKind, message string) {
	c.notification = &Notification{Kind: kind, Message: message, ShownAt: c.now()}
}

func (c *Controller) transition(to DeleteState) {
	from := c.deleteState
	c.deleteState = to
	if c.OnDeleteTransition != nil {
		c.OnDeleteTransition(from, to)
	}
}

func (c *Controller) inSnapshot(id int64) bool {
	for _, p := range c.passes {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (c *Controller) removeLocal(id int64) {
	kept := c.passes[:0]
	for _, p := range c.passes {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	c.passes = kept

	// stay on a page that still exists
	if last := c.pages(len(c.filtered())); c.page > last && last > 0 {
		c.page = last
	}
}

func (c *Controller) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
