// Package shop defines the shopping-list domain shared by the store,
// lifecycle, api and cli packages.
//
// # Entities
//
//   - List: one shopping trip. Exactly one list is active at a time.
//   - Item: a named product, deduplicated globally by its normalized name.
//   - Entry: one Item placed on one List at a point in time. An item added
//     twice is two entries.
//
// Every operation in this module reports failure through *Error, whose Kind
// tells callers whether the input was bad, a referenced row was missing, or
// the backend failed. Backend detail never leaks through Error.Error().
package shop
