package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shoplist/internal/lifecycle"
	"github.com/roach88/shoplist/internal/shop"
)

const dateLayout = "2006-01-02 15:04"

var errNoActiveList = shop.NotFound("active list", "no active list, run \"shoplist init\" first")

// InitResult is the output of init.
type InitResult struct {
	ListID  string `json:"list_id"`
	Created bool   `json:"created"`
}

func (r InitResult) Text() string {
	if r.Created {
		return fmt.Sprintf("Created list %s\n", r.ListID)
	}
	return fmt.Sprintf("Active list is %s\n", r.ListID)
}

// NewInitCommand creates the init command.
func NewInitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and the first list",
		Long: `Create the database schema and, if there are no lists yet, the first
active list. Running init again is harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			id, created, err := s.lists.Bootstrap(cmd.Context())
			if err != nil {
				return s.out.Fail("failed to create the first list", err)
			}
			return s.out.Success(InitResult{ListID: id, Created: created})
		},
	}
}

// ShowResult wraps the current list for output.
type ShowResult struct {
	*shop.CurrentList
}

func (r ShowResult) Text() string {
	if r.CurrentList == nil {
		return "No active list.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "List %s (started %s)\n", r.ID, r.Created.Local().Format(dateLayout))
	if len(r.Items) == 0 {
		b.WriteString("  (empty)\n")
	}
	for _, e := range r.Items {
		fmt.Fprintf(&b, "  %-30s  %s\n", e.Name, e.ItemID)
	}
	return b.String()
}

// NewShowCommand creates the show command.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active list and its items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			current, err := s.store.CurrentList(cmd.Context())
			if err != nil {
				return s.out.Fail("failed to read the active list", err)
			}
			if s.out.Format == "json" && current == nil {
				return s.out.Success(struct{}{})
			}
			return s.out.Success(ShowResult{current})
		},
	}
}

// RolloverOutput reports the outcome of retire or drop.
type RolloverOutput struct {
	RetiredListID string   `json:"retired_list_id,omitempty"`
	RemovedListID string   `json:"removed_list_id,omitempty"`
	ListID        string   `json:"list_id,omitempty"`
	Carried       []string `json:"carried,omitempty"`
	CarryFailed   []string `json:"carry_failed,omitempty"`
}

func newRolloverOutput(res *lifecycle.RolloverResult) RolloverOutput {
	out := RolloverOutput{}
	if res == nil {
		return out
	}
	out.RetiredListID = res.RetiredListID
	out.ListID = res.NewListID
	out.Carried = res.Carried
	for _, f := range res.Failed {
		out.CarryFailed = append(out.CarryFailed, f.ItemID)
	}
	return out
}

func (r RolloverOutput) Text() string {
	var b strings.Builder
	if r.RemovedListID != "" {
		fmt.Fprintf(&b, "Deleted list %s\n", r.RemovedListID)
	}
	if r.RetiredListID != "" {
		fmt.Fprintf(&b, "Retired list %s\n", r.RetiredListID)
	}
	switch {
	case r.ListID != "" && (r.RetiredListID != "" || r.RemovedListID != ""):
		fmt.Fprintf(&b, "New list %s with %d recurring item(s)\n", r.ListID, len(r.Carried))
	case r.ListID != "":
		fmt.Fprintf(&b, "Active list is %s\n", r.ListID)
	}
	if len(r.CarryFailed) > 0 {
		fmt.Fprintf(&b, "Not carried over: %s\n", strings.Join(r.CarryFailed, ", "))
	}
	return b.String()
}

// NewRetireCommand creates the retire command.
func NewRetireCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retire [list-id]",
		Short: "Retire a list and start a new one",
		Long: `Retire the given list, or the active list when no id is given, and start a
new active list with every recurring item on it.

Retiring a list that is already inactive changes nothing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			var res *lifecycle.RolloverResult
			if len(args) == 1 {
				res, err = s.lists.RetireList(ctx, args[0])
			} else {
				res, err = s.lists.CreateList(ctx)
			}
			if err != nil && (res == nil || res.NewListID == "") {
				return s.out.Fail("failed to retire list", err)
			}
			if err != nil {
				s.out.VerboseLog("rollover incomplete: %v", err)
			}
			return s.out.Success(newRolloverOutput(res))
		},
	}
}

// NewDropCommand creates the drop command.
func NewDropCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <list-id>",
		Short: "Delete a list and its items' placements",
		Long: `Delete a list. Items stay known for search; only their placement on this
list is removed. Dropping the active list starts a new one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.lists.RemoveList(cmd.Context(), args[0])
			if err != nil && (res == nil || res.NewListID == "") {
				return s.out.Fail("failed to delete list", err)
			}
			out := newRolloverOutput(res)
			out.RetiredListID = ""
			out.RemovedListID = args[0]
			return s.out.Success(out)
		},
	}
}

// ListsResult is the output of lists.
type ListsResult []shop.List

func (r ListsResult) Text() string {
	if len(r) == 0 {
		return "No lists.\n"
	}
	var b strings.Builder
	for _, l := range r {
		marker := " "
		if l.Active {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %s  %s\n", marker, l.ID, l.Created.Local().Format(dateLayout))
	}
	return b.String()
}

// NewListsCommand creates the lists command.
func NewListsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "List every list, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			lists, err := s.store.Lists(cmd.Context())
			if err != nil {
				return s.out.Fail("failed to read lists", err)
			}
			return s.out.Success(ListsResult(lists))
		},
	}
}
