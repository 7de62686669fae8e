package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/roach88/shoplist/internal/shop"
)

// CreateList inserts a new active list and returns its id.
//
// On failure no id is returned and the caller must not assume a list exists.
func (s *Store) CreateList(ctx context.Context) (string, error) {
	id := s.ids.Generate()
	created := s.timestamp()

	err := s.run(ctx, "create list", func(ctx context.Context, tx *sqlx.Tx) error {
		query, args, err := s.sb.Insert("lists").
			Columns("id", "active", "created").
			Values(id, true, created).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert list: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// DeactivateList marks a list inactive. It does not create a replacement;
// that is the lifecycle layer's job.
func (s *Store) DeactivateList(ctx context.Context, listID string) error {
	return s.setListActive(ctx, "deactivate list", listID, false)
}

// ActivateList marks a list active again.
func (s *Store) ActivateList(ctx context.Context, listID string) error {
	return s.setListActive(ctx, "activate list", listID, true)
}

func (s *Store) setListActive(ctx context.Context, op, listID string, active bool) error {
	return s.run(ctx, op, func(ctx context.Context, tx *sqlx.Tx) error {
		query, args, err := s.sb.Update("lists").
			Set("active", active).
			Where(sq.Eq{"id": listID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		return execExpectingRow(ctx, tx, op, "list "+listID+" does not exist", query, args)
	})
}

// RemoveList deletes a list together with its allocations.
// Items referenced by those allocations are kept.
func (s *Store) RemoveList(ctx context.Context, listID string) error {
	const op = "remove list"
	return s.run(ctx, op, func(ctx context.Context, tx *sqlx.Tx) error {
		query, args, err := s.sb.Delete("item_allocation").Where(sq.Eq{"list_id": listID}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete allocations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete allocations: %w", err)
		}

		query, args, err = s.sb.Delete("lists").Where(sq.Eq{"id": listID}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete list: %w", err)
		}
		return execExpectingRow(ctx, tx, op, "list "+listID+" does not exist", query, args)
	})
}

// ListExists reports whether a list with the given id exists.
func (s *Store) ListExists(ctx context.Context, listID string) (bool, error) {
	var exists bool
	err := s.run(ctx, "list exists", func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		exists, err = s.listExists(ctx, tx, listID)
		return err
	})
	return exists, err
}

func (s *Store) listExists(ctx context.Context, tx *sqlx.Tx, listID string) (bool, error) {
	query, args, err := s.sb.Select("COUNT(*)").From("lists").Where(sq.Eq{"id": listID}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build count: %w", err)
	}
	var count int
	if err := sqlx.GetContext(ctx, tx, &count, query, args...); err != nil {
		return false, fmt.Errorf("count lists: %w", err)
	}
	return count > 0, nil
}

// GetList returns a single list.
func (s *Store) GetList(ctx context.Context, listID string) (shop.List, error) {
	const op = "get list"
	var l shop.List
	err := s.run(ctx, op, func(ctx context.Context, tx *sqlx.Tx) error {
		query, args, err := s.sb.Select("id", "active", "created").
			From("lists").
			Where(sq.Eq{"id": listID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build select: %w", err)
		}
		return notFoundOnNoRows(sqlx.GetContext(ctx, tx, &l, query, args...), op, "list "+listID+" does not exist")
	})
	l.Created = l.Created.UTC()
	return l, err
}

// ActiveListID returns the id of the active list. When more than one list is
// active the newest wins. ok is false when no list is active.
func (s *Store) ActiveListID(ctx context.Context) (id string, ok bool, err error) {
	err = s.run(ctx, "active list", func(ctx context.Context, tx *sqlx.Tx) error {
		l, found, err := s.activeList(ctx, tx)
		id, ok = l.ID, found
		return err
	})
	return id, ok, err
}

func (s *Store) activeList(ctx context.Context, tx *sqlx.Tx) (shop.List, bool, error) {
	query, args, err := s.sb.Select("id", "active", "created").
		From("lists").
		Where(sq.Eq{"active": true}).
		OrderBy("created DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return shop.List{}, false, fmt.Errorf("build select: %w", err)
	}

	var lists []shop.List
	if err := sqlx.SelectContext(ctx, tx, &lists, query, args...); err != nil {
		return shop.List{}, false, fmt.Errorf("select active list: %w", err)
	}
	if len(lists) == 0 {
		return shop.List{}, false, nil
	}
	l := lists[0]
	l.Created = l.Created.UTC()
	return l, true, nil
}

// CountLists returns the number of lists, active or not.
func (s *Store) CountLists(ctx context.Context) (int, error) {
	var count int
	err := s.run(ctx, "count lists", func(ctx context.Context, tx *sqlx.Tx) error {
		query, args, err := s.sb.Select("COUNT(*)").From("lists").ToSql()
		if err != nil {
			return fmt.Errorf("build count: %w", err)
		}
		if err := sqlx.GetContext(ctx, tx, &count, query, args...); err != nil {
			return fmt.Errorf("count lists: %w", err)
		}
		return nil
	})
	return count, err
}

// Lists returns every list, newest first.
func (s *Store) Lists(ctx context.Context) ([]shop.List, error) {
	lists := []shop.List{}
	err := s.run(ctx, "lists", func(ctx context.Context, tx *sqlx.Tx) error {
		query, args, err := s.sb.Select("id", "active", "created").
			From("lists").
			OrderBy("created DESC", "id DESC").
			ToSql()
		if err != nil {
			return fmt.Errorf("build select: %w", err)
		}
		if err := sqlx.SelectContext(ctx, tx, &lists, query, args...); err != nil {
			return fmt.Errorf("select lists: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range lists {
		lists[i].Created = lists[i].Created.UTC()
	}
	return lists, nil
}

// CurrentList returns the active list and its contents, or nil when no list
// is active. A missing list is not an error.
func (s *Store) CurrentList(ctx context.Context) (*shop.CurrentList, error) {
	var current *shop.CurrentList
	err := s.run(ctx, "current list", func(ctx context.Context, tx *sqlx.Tx) error {
		l, ok, err := s.activeList(ctx, tx)
		if err != nil || !ok {
			return err
		}
		entries, err := s.listContents(ctx, tx, l.ID)
		if err != nil {
			return err
		}
		current = &shop.CurrentList{ID: l.ID, Created: l.Created, Items: entries}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

// execExpectingRow runs a write and returns KindNotFound when it touched no rows.
func execExpectingRow(ctx context.Context, tx *sqlx.Tx, op, missing, query string, args []any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return shop.NotFound(op, missing)
	}
	return nil
}
