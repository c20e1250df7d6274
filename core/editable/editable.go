// Package editable implements the view/edit/save round-trip of a piece of rich text
// (a lesson description, a card field) with optimistic commits and rollback on failure.
package editable

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kamusi/core/richtext"
)

// FailedToSave is the user facing message of any failed commit.
const FailedToSave = "Failed to save"

const defaultSavedFlash = time.Second

var (
	ErrNotEditing      = errors.New("content is not being edited")
	ErrSaveInFlight    = errors.New("a save is in flight")
	ErrSaveUnavailable = errors.New("no saver available")
	ErrSaveRejected    = errors.New("save rejected")

	nowFunc = time.Now // mockable
)

type Mode int

const (
	ModeView Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "view"
}

// Status is the save status of the content. A failed status carries the last error message.
type Status int

const (
	StatusCommitted Status = iota
	StatusPending
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFailed:
		return "failed"
	default:
		return "committed"
	}
}

// Discipline tells when an edit is committed.
type Discipline int

const (
	AutoCommit   Discipline = iota // commit on Blur
	ManualCommit                   // commit on Save, discard on Cancel
)

// Saver persists a value and returns its canonical form.
type Saver interface {
	Save(ctx context.Context, value string) (string, error)
}

type SaverFunc func(ctx context.Context, value string) (string, error)

func (f SaverFunc) Save(ctx context.Context, value string) (string, error) {
	return f(ctx, value)
}

type Options struct {
	CanEdit     bool
	Discipline  Discipline
	Saver       Saver
	Placeholder string
	SavedFlash  time.Duration

	OnChange func(value string) // called on every edit of the working value
	OnCommit func(value string) // called with the canonical value after a successful save
}

// State is a snapshot of a Content.
type State struct {
	Mode      Mode   `json:"mode"`
	Status    Status `json:"status"`
	Committed string `json:"committed"`
	Working   string `json:"working"`
	Error     string `json:"error,omitempty"`
	JustSaved bool   `json:"just_saved"`
}

// Content is an editable piece of rich text. It is safe for concurrent use.
//
// In view mode with no save pending, the working value always equals the committed value.
type Content struct {
	opts Options

	mu        sync.Mutex
	mode      Mode
	status    Status
	committed string
	working   string
	lastErr   string
	savedAt   time.Time
	external  *string // external value deferred while saving or editing
	queued    bool    // a commit was requested while a save was in flight
}

func New(initial string, opts Options) *Content {
	if opts.SavedFlash <= 0 {
		opts.SavedFlash = defaultSavedFlash
	}
	return &Content{
		opts:      opts,
		committed: initial,
		working:   initial,
	}
}

func (c *Content) CanEdit() bool { return c.opts.CanEdit }

func (c *Content) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Content) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Content) Committed() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed
}

func (c *Content) Working() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.working
}

// Err returns the message of the last failed commit, if any.
func (c *Content) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// JustSaved reports whether the last commit succeeded less than Options.SavedFlash ago.
func (c *Content) JustSaved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.justSaved()
}

func (c *Content) justSaved() bool {
	return c.status == StatusCommitted && !c.savedAt.IsZero() && nowFunc().Sub(c.savedAt) < c.opts.SavedFlash
}

func (c *Content) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Mode:      c.mode,
		Status:    c.status,
		Committed: c.committed,
		Working:   c.working,
		Error:     c.lastErr,
		JustSaved: c.justSaved(),
	}
}

// Render returns the sanitized committed value, or the placeholder when there is nothing to show.
func (c *Content) Render() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if richtext.IsBlank(c.committed) {
		return c.opts.Placeholder
	}
	return richtext.Sanitize(c.committed)
}

// Preview returns the sanitized working value.
func (c *Content) Preview() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return richtext.Sanitize(c.working)
}

// Click enters edit mode. It is a no-op returning false without edit capability.
func (c *Content) Click() bool {
	if !c.opts.CanEdit {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeEdit {
		return true
	}
	c.mode = ModeEdit
	c.working = c.committed
	c.status = StatusCommitted
	c.lastErr = ""
	return true
}

// Change replaces the working value. Changes made while a save is in flight are kept
// and can be committed once the save resolves.
func (c *Content) Change(value string) error {
	c.mu.Lock()
	if c.mode != ModeEdit {
		c.mu.Unlock()
		return ErrNotEditing
	}
	c.working = value
	onChange := c.opts.OnChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(value)
	}
	return nil
}

// Blur commits the working value in AutoCommit mode. In ManualCommit mode it does nothing.
func (c *Content) Blur(ctx context.Context) error {
	if c.opts.Discipline != AutoCommit {
		return nil
	}
	c.mu.Lock()
	editing := c.mode == ModeEdit
	c.mu.Unlock()
	if !editing {
		return nil
	}
	return c.commit(ctx)
}

// Save commits the working value.
// When a save is already in flight the commit is queued behind it and Save returns nil at once.
func (c *Content) Save(ctx context.Context) error {
	return c.commit(ctx)
}

// Cancel drops the working value and returns to view mode.
func (c *Content) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeEdit {
		return nil
	}
	if c.status == StatusPending {
		return ErrSaveInFlight
	}
	c.working = c.committed
	c.mode = ModeView
	c.applyExternal()
	return nil
}

// SetExternal resynchronizes the content with a value changed elsewhere.
// The value is deferred while a save is in flight or while the working value has unsaved changes;
// it returns whether the value was applied right away.
func (c *Content) SetExternal(value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusPending || (c.mode == ModeEdit && c.working != c.committed) {
		c.external = &value
		return false
	}
	c.committed = value
	c.working = value
	c.external = nil
	return true
}

// applyExternal must be called with mu held.
func (c *Content) applyExternal() {
	if c.external == nil {
		return
	}
	c.committed = *c.external
	c.working = *c.external
	c.external = nil
}

func (c *Content) commit(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ModeEdit {
		c.mu.Unlock()
		return ErrNotEditing
	}
	if c.status == StatusPending {
		c.queued = true
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	for {
		c.mu.Lock()
		submitted := c.working
		c.status = StatusPending
		c.lastErr = ""
		c.queued = false
		saver := c.opts.Saver
		c.mu.Unlock()

		canonical, err := save(ctx, saver, richtext.Sanitize(submitted))

		c.mu.Lock()
		if err != nil {
			c.status = StatusFailed
			c.lastErr = FailedToSave
			c.working = c.committed
			c.mode = ModeView
			c.queued = false
			c.applyExternal()
			c.mu.Unlock()
			return err
		}

		c.committed = canonical
		c.status = StatusCommitted
		c.savedAt = nowFunc()
		c.external = nil

		edited := c.working != submitted
		if edited && c.queued {
			c.mu.Unlock()
			continue
		}
		if !edited {
			c.working = c.committed
			c.mode = ModeView
		}
		onCommit := c.opts.OnCommit
		c.mu.Unlock()

		if onCommit != nil {
			onCommit(canonical)
		}
		return nil
	}
}

func save(ctx context.Context, saver Saver, value string) (string, error) {
	if saver == nil {
		return "", ErrSaveUnavailable
	}
	canonical, err := saver.Save(ctx, value)
	if err != nil {
		return "", errors.Wrapf(ErrSaveRejected, "%v", err)
	}
	return canonical, nil
}
