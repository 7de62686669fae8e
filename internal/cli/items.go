package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shoplist/internal/shop"
)

// ItemResult reports a single item change.
type ItemResult struct {
	ListID    string `json:"list_id,omitempty"`
	ItemID    string `json:"item_id"`
	Name      string `json:"name,omitempty"`
	Recurring *bool  `json:"recurring,omitempty"`
	action    string
}

func (r ItemResult) Text() string {
	switch r.action {
	case "added":
		return fmt.Sprintf("Added %s (%s)\n", r.Name, r.ItemID)
	case "removed":
		return fmt.Sprintf("Removed %s from list %s\n", r.ItemID, r.ListID)
	default:
		if r.Recurring != nil && *r.Recurring {
			return fmt.Sprintf("%s is now recurring\n", r.ItemID)
		}
		return fmt.Sprintf("%s is no longer recurring\n", r.ItemID)
	}
}

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	ListID    string
	Image     string
	Recurring bool
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an item to a list",
		Long: `Add an item to the active list, or to the list given with --list.

Names are 1 to 30 letters or digits. An item with the same name is reused, so
adding "Milk" every week always refers to the same item.

Example:
  shoplist add Milk
  shoplist add Coffee --recurring --img /img/coffee.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			listID := opts.ListID
			if listID == "" {
				if listID, err = s.activeList(cmd); err != nil {
					return err
				}
			}

			itemID, err := s.store.AddItem(cmd.Context(), listID, shop.ItemInput{
				Name:      args[0],
				ImagePath: opts.Image,
				Recurring: opts.Recurring,
			})
			if err != nil {
				return s.out.Fail("failed to add item", err)
			}
			name, _ := shop.NormalizeName(args[0])
			return s.out.Success(ItemResult{ListID: listID, ItemID: itemID, Name: name, action: "added"})
		},
	}

	cmd.Flags().StringVar(&opts.ListID, "list", "", "list id (default: the active list)")
	cmd.Flags().StringVar(&opts.Image, "img", "", "image path for a new item")
	cmd.Flags().BoolVarP(&opts.Recurring, "recurring", "r", false, "mark a new item recurring")

	return cmd
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	var listID string

	cmd := &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove an item from a list",
		Long: `Remove an item from the active list, or from the list given with --list.
The item itself is kept and still shows up in search.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			id := listID
			if id == "" {
				if id, err = s.activeList(cmd); err != nil {
					return err
				}
			}
			if err := s.store.RemoveItem(cmd.Context(), id, args[0]); err != nil {
				return s.out.Fail("failed to remove item", err)
			}
			return s.out.Success(ItemResult{ListID: id, ItemID: args[0], action: "removed"})
		},
	}

	cmd.Flags().StringVar(&listID, "list", "", "list id (default: the active list)")
	return cmd
}

// NewRecurCommand creates the recur command.
func NewRecurCommand(rootOpts *RootOptions) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "recur <item-id>",
		Short: "Mark an item recurring",
		Long: `Mark an item recurring so it is carried onto every new list.
Use --off to stop carrying it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			recurring := !off
			if err := s.store.SetRecurring(cmd.Context(), args[0], recurring); err != nil {
				return s.out.Fail("failed to update item", err)
			}
			return s.out.Success(ItemResult{ItemID: args[0], Recurring: &recurring})
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "stop carrying the item")
	return cmd
}

// SearchResult is the output of search.
type SearchResult struct {
	Names []string `json:"names"`
}

func (r SearchResult) Text() string {
	if len(r.Names) == 0 {
		return "No matches.\n"
	}
	return strings.Join(r.Names, "\n") + "\n"
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <prefix>",
		Short: "Find known items by name prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			items, err := s.store.SearchItems(cmd.Context(), args[0])
			if err != nil {
				return s.out.Fail("search failed", err)
			}
			res := SearchResult{Names: make([]string, 0, len(items))}
			for _, it := range items {
				res.Names = append(res.Names, it.Name)
			}
			return s.out.Success(res)
		},
	}
}
