package shop

import "time"

// List is a single shopping list.
type List struct {
	ID      string    `json:"id" db:"id"`
	Active  bool      `json:"active" db:"active"`
	Created time.Time `json:"created" db:"created"`
}

// Item is a product that can be placed on lists.
type Item struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	ImagePath string `json:"image_path" db:"img"`
	Recurring bool   `json:"recurring" db:"recurring"`
}

// Entry is one row of a list's contents: an item as it appears on the list.
// An item added twice appears as two entries.
type Entry struct {
	ItemID    string    `json:"item_id" db:"item_id"`
	Name      string    `json:"name" db:"name"`
	ImagePath string    `json:"image_path" db:"img"`
	Added     time.Time `json:"added" db:"added"`
}

// CurrentList is the active list together with its contents.
type CurrentList struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Items   []Entry   `json:"items"`
}

// ItemInput carries the caller-supplied fields for adding an item.
type ItemInput struct {
	Name      string
	ImagePath string
	Recurring bool
}
