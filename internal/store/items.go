package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/roach88/shoplist/internal/shop"
)

// AddItem puts an item on a list and returns the item's id.
//
// The name is normalized and validated first. An existing item with the
// same name is reused; otherwise a new item row is created with the given
// image path and recurring flag. Every call inserts a new allocation, so an
// item added twice appears twice in the list's contents.
//
// The list lookup, the item lookup-or-insert and the allocation insert
// commit together or not at all.
func (s *Store) AddItem(ctx context.Context, listID string, in shop.ItemInput) (string, error) {
	const op = "add item"

	name, err := shop.NormalizeName(in.Name)
	if err != nil {
		return "", err
	}

	var itemID string
	err = s.run(ctx, op, func(ctx context.Context, tx *sqlx.Tx) error {
		exists, err := s.listExists(ctx, tx, listID)
		if err != nil {
			return err
		}
		if !exists {
			return shop.NotFound(op, "list "+listID+" does not exist")
		}

		itemID, err = s.findOrCreateItem(ctx, tx, name, in)
		if err != nil {
			return err
		}

		return s.insertAllocation(ctx, tx, listID, itemID)
	})
	if err != nil {
		return "", err
	}
	return itemID, nil
}

// findOrCreateItem returns the id of the item called name, inserting it if needed.
// A concurrent insert of the same name is absorbed by ON CONFLICT and re-read.
func (s *Store) findOrCreateItem(ctx context.Context, tx *sqlx.Tx, name string, in shop.ItemInput) (string, error) {
	id, found, err := s.itemIDByName(ctx, tx, name)
	if err != nil || found {
		return id, err
	}

	id = s.ids.Generate()
	query, args, err := s.sb.Insert("items").
		Columns("id", "name", "img", "recurring").
		Values(id, name, in.ImagePath, in.Recurring).
		Suffix("ON CONFLICT(name) DO NOTHING").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("insert item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return id, nil
	}

	id, found, err = s.itemIDByName(ctx, tx, name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("item %q vanished after conflicting insert", name)
	}
	return id, nil
}

func (s *Store) itemIDByName(ctx context.Context, tx *sqlx.Tx, name string) (string, bool, error) {
	query, args, err := s.sb.Select("id").From("items").Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build select: %w", err)
	}
	var id string
	err = sqlx.GetContext(ctx, tx, &id, query, args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("select item by name: %w", err)
	}
	return id, true, nil
}

func (s *Store) insertAllocation(ctx context.Context, tx *sqlx.Tx, listID, itemID string) error {
	query, args, err := s.sb.Insert("item_allocation").
		Columns("list_id", "item_id", "added").
		Values(listID, itemID, s.timestamp()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert allocation: %w", err)
	}
	return nil
}

// AllocateItem places an existing item on a list by id.
// Returns KindNotFound if either the list or the item is missing.
func (s *Store) AllocateItem(ctx context.Context, listID, itemID string) error {
	const op = "allocate item"
	return s.run(ctx, op, func(ctx context.Context, tx *sqlx.Tx) error {
		exists, err := s.listExists(ctx, tx, listID)
		if err != nil {
			return err
		}
		if !exists {
			return shop.NotFound(op, "list "+listID+" does not exist")
		}
		if _, err := s.getItem(ctx, tx, op, itemID); err != nil {
			return err
		}
		return s.insertAllocation(ctx, tx, listID, itemID)
	})
}

// RemoveItem takes an item off a list by deleting every allocation that links
// the two. The item itself is kept.
func (s *Store) RemoveItem(ctx context.Context, listID, itemID string) error {
	const op = "remove item"
	return s.run(ctx, op, func(ctx context.Context, tx *sqlx.Tx) error {
		query, args, err := s.sb.Delete("item_allocation").
			Where(sq.Eq{"list_id": listID, "item_id": itemID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		return execExpectingRow(ctx, tx, op, "item is not on the list", query, args)
	})
}

// SetRecurring updates an item's recurring flag.
func (s *Store) SetRecurring(ctx context.Context, itemID string, recurring bool) error {
	const op = "set recurring"
	return s.run(ctx, op, func(ctx context.Context, tx *sqlx.Tx) error {
		query, args, err := s.sb.Update("items").
			Set("recurring", recurring).
			Where(sq.Eq{"id": itemID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		return execExpectingRow(ctx, tx, op, "item "+itemID+" does not exist", query, args)
	})
}

// GetItem returns a single item by id.
func (s *Store) GetItem(ctx context.Context, itemID string) (shop.Item, error) {
	const op = "get item"
	var item shop.Item
	err := s.run(ctx, op, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		item, err = s.getItem(ctx, tx, op, itemID)
		return err
	})
	return item, err
}

func (s *Store) getItem(ctx context.Context, tx *sqlx.Tx, op, itemID string) (shop.Item, error) {
	query, args, err := s.sb.Select("id", "name", "img", "recurring").
		From("items").
		Where(sq.Eq{"id": itemID}).
		ToSql()
	if err != nil {
		return shop.Item{}, fmt.Errorf("build select: %w", err)
	}
	var item shop.Item
	err = sqlx.GetContext(ctx, tx, &item, query, args...)
	return item, notFoundOnNoRows(err, op, "item "+itemID+" does not exist")
}

// ItemExists reports whether an item with the given name exists.
// The name is NFC normalized before comparison; invalid names never exist.
func (s *Store) ItemExists(ctx context.Context, name string) (bool, error) {
	normalized, err := shop.NormalizeName(name)
	if err != nil {
		return false, nil
	}
	var found bool
	err = s.run(ctx, "item exists", func(ctx context.Context, tx *sqlx.Tx) error {
		_, found, err = s.itemIDByName(ctx, tx, normalized)
		return err
	})
	return found, err
}

// ListContents returns the entries on a list, most recently added first.
// An unknown list has no entries.
func (s *Store) ListContents(ctx context.Context, listID string) ([]shop.Entry, error) {
	var entries []shop.Entry
	err := s.run(ctx, "list contents", func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		entries, err = s.listContents(ctx, tx, listID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) listContents(ctx context.Context, tx *sqlx.Tx, listID string) ([]shop.Entry, error) {
	query, args, err := s.sb.Select("a.item_id", "i.name", "i.img", "a.added").
		From("item_allocation a").
		Join("items i ON i.id = a.item_id").
		Where(sq.Eq{"a.list_id": listID}).
		OrderBy("a.added DESC", "a.id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	entries := []shop.Entry{}
	if err := sqlx.SelectContext(ctx, tx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("select list contents: %w", err)
	}
	for i := range entries {
		entries[i].Added = entries[i].Added.UTC()
	}
	return entries, nil
}

// SearchItems returns items whose name starts with prefix. Case sensitivity
// follows the backend's LIKE. An empty prefix matches nothing.
func (s *Store) SearchItems(ctx context.Context, prefix string) ([]shop.Item, error) {
	items := []shop.Item{}
	if prefix == "" {
		return items, nil
	}

	err := s.run(ctx, "search items", func(ctx context.Context, tx *sqlx.Tx) error {
		query, args, err := s.sb.Select("id", "name", "img", "recurring").
			From("items").
			Where(sq.Expr(`name LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")).
			OrderBy("name ASC").
			ToSql()
		if err != nil {
			return fmt.Errorf("build select: %w", err)
		}
		if err := sqlx.SelectContext(ctx, tx, &items, query, args...); err != nil {
			return fmt.Errorf("search items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// RecurringItems returns every item flagged as recurring.
func (s *Store) RecurringItems(ctx context.Context) ([]shop.Item, error) {
	items := []shop.Item{}
	err := s.run(ctx, "recurring items", func(ctx context.Context, tx *sqlx.Tx) error {
		query, args, err := s.sb.Select("id", "name", "img", "recurring").
			From("items").
			Where(sq.Eq{"recurring": true}).
			OrderBy("name ASC").
			ToSql()
		if err != nil {
			return fmt.Errorf("build select: %w", err)
		}
		if err := sqlx.SelectContext(ctx, tx, &items, query, args...); err != nil {
			return fmt.Errorf("select recurring items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE wildcards so prefix matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
