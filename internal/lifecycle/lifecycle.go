package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/shoplist/internal/shop"
)

// Store is the subset of store.Store the lifecycle rules need.
type Store interface {
	CreateList(ctx context.Context) (string, error)
	DeactivateList(ctx context.Context, listID string) error
	ActivateList(ctx context.Context, listID string) error
	RemoveList(ctx context.Context, listID string) error
	GetList(ctx context.Context, listID string) (shop.List, error)
	ActiveListID(ctx context.Context) (string, bool, error)
	CountLists(ctx context.Context) (int, error)
	RecurringItems(ctx context.Context) ([]shop.Item, error)
	AllocateItem(ctx context.Context, listID, itemID string) error
}

// Step names one stage of a rollover.
type Step string

const (
	StepDeactivate     Step = "deactivate"
	StepFetchRecurring Step = "fetch-recurring"
	StepCreate         Step = "create"
	StepCarry          Step = "carry"
)

// StepError reports which rollover step failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("rollover %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// CarryFailure records a recurring item that could not be carried forward.
type CarryFailure struct {
	ItemID string
	Err    error
}

// RolloverResult describes what a rollover did, including partial progress.
type RolloverResult struct {
	// RetiredListID is the list that was deactivated; empty if none was active.
	RetiredListID string
	// NewListID is the list created; empty if creation failed.
	NewListID string
	// Carried holds the ids of recurring items placed on the new list.
	Carried []string
	// Failed holds recurring items that could not be placed on the new list.
	Failed []CarryFailure
}

// Complete reports whether every step succeeded.
func (r *RolloverResult) Complete() bool {
	return r.NewListID != "" && len(r.Failed) == 0
}

// Manager runs lifecycle rules against a Store.
type Manager struct {
	store  Store
	logger *slog.Logger
}

// New creates a Manager. A nil logger falls back to slog.Default().
func New(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, logger: logger}
}

// Rollover retires the active list (if any), creates a new active list and
// carries every recurring item onto it.
//
// The result is always non-nil and reflects how far the rollover got. The
// error is nil or a *StepError. A carry failure still leaves a usable new
// list: the result has NewListID set and Failed populated.
func (m *Manager) Rollover(ctx context.Context) (*RolloverResult, error) {
	res := &RolloverResult{}

	current, ok, err := m.store.ActiveListID(ctx)
	if err != nil {
		return res, m.fail(StepDeactivate, err)
	}
	if ok {
		if err := m.store.DeactivateList(ctx, current); err != nil {
			return res, m.fail(StepDeactivate, err)
		}
		res.RetiredListID = current
	}

	recurring, fetchErr := m.store.RecurringItems(ctx)

	newID, err := m.store.CreateList(ctx)
	if err != nil {
		m.restore(ctx, res.RetiredListID)
		return res, m.fail(StepCreate, err)
	}
	res.NewListID = newID

	if fetchErr != nil {
		return res, m.fail(StepFetchRecurring, fetchErr)
	}

	var carryErrs []error
	for _, item := range recurring {
		if err := m.store.AllocateItem(ctx, newID, item.ID); err != nil {
			res.Failed = append(res.Failed, CarryFailure{ItemID: item.ID, Err: err})
			carryErrs = append(carryErrs, fmt.Errorf("item %s: %w", item.ID, err))
			continue
		}
		res.Carried = append(res.Carried, item.ID)
	}
	if len(carryErrs) > 0 {
		return res, m.fail(StepCarry, errors.Join(carryErrs...))
	}

	m.logger.Info("list rolled over",
		"retired", res.RetiredListID,
		"list_id", res.NewListID,
		"carried", len(res.Carried),
	)
	return res, nil
}

// restore reactivates a list that was retired by a rollover whose create
// step failed.
func (m *Manager) restore(ctx context.Context, listID string) {
	if listID == "" {
		m.logger.Error("rollover left no active list", "reason", "create failed with nothing to restore")
		return
	}
	if err := m.store.ActivateList(ctx, listID); err != nil {
		m.logger.Error("rollover left no active list", "retired", listID, "error", err)
		return
	}
	m.logger.Warn("rollover aborted, previous list reactivated", "list_id", listID)
}

func (m *Manager) fail(step Step, err error) error {
	m.logger.Error("rollover failed", "step", string(step), "error", err)
	return &StepError{Step: step, Err: err}
}

// RetireList rolls over listID if it is the active list.
//
// Retiring an inactive list is a no-op: the result carries the current
// active list id as NewListID and nothing else. An unknown list returns a
// shop.KindNotFound error.
func (m *Manager) RetireList(ctx context.Context, listID string) (*RolloverResult, error) {
	l, err := m.store.GetList(ctx, listID)
	if err != nil {
		return &RolloverResult{}, err
	}
	if !l.Active {
		current, _, err := m.store.ActiveListID(ctx)
		if err != nil {
			return &RolloverResult{}, err
		}
		m.logger.Debug("retire skipped, list already inactive", "list_id", listID)
		return &RolloverResult{NewListID: current}, nil
	}
	return m.Rollover(ctx)
}

// CreateList starts a new active list with the recurring items on it. Any
// list active before the call is retired, so there is never more than one.
func (m *Manager) CreateList(ctx context.Context) (*RolloverResult, error) {
	return m.Rollover(ctx)
}

// Bootstrap makes sure an active list exists. It creates the first list when
// the store has none at all, and rolls in a new list carrying the recurring
// items when lists exist but none is active. It returns the active list id
// and whether a list was created.
func (m *Manager) Bootstrap(ctx context.Context) (string, bool, error) {
	n, err := m.store.CountLists(ctx)
	if err != nil {
		return "", false, err
	}
	if n == 0 {
		id, err := m.store.CreateList(ctx)
		if err != nil {
			return "", false, err
		}
		m.logger.Info("bootstrapped first list", "list_id", id)
		return id, true, nil
	}

	id, ok, err := m.store.ActiveListID(ctx)
	if err != nil || ok {
		return id, false, err
	}

	m.logger.Warn("no active list, starting a new one", "lists", n)
	res, err := m.Rollover(ctx)
	if res.NewListID == "" {
		return "", false, err
	}
	return res.NewListID, true, nil
}

// RemoveList deletes a list. If it was the active list a fresh list is
// rolled in so an active list still exists; the returned result describes
// that replacement and is nil otherwise.
func (m *Manager) RemoveList(ctx context.Context, listID string) (*RolloverResult, error) {
	l, err := m.store.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := m.store.RemoveList(ctx, listID); err != nil {
		return nil, err
	}
	m.logger.Info("list removed", "list_id", listID)

	if !l.Active {
		return nil, nil
	}
	if _, ok, err := m.store.ActiveListID(ctx); err != nil || ok {
		return nil, err
	}
	return m.Rollover(ctx)
}
