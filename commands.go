package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"calorie-tracker/config"
	"calorie-tracker/core"
	"calorie-tracker/editstate"
	"calorie-tracker/seed"

	"github.com/spf13/cobra"
)

func addItemCommands(root *cobra.Command) {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List food items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
				return runList(a, out)
			})
		},
	}
	root.AddCommand(listCmd)

	addCmd := &cobra.Command{
		Use:   "add NAME CALORIES",
		Short: "Add a food item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
				item, err := a.repo.Add(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return report(a, out, item.ID)
			})
		},
	}
	root.AddCommand(addCmd)

	editCmd := &cobra.Command{
		Use:   "edit ID NAME CALORIES",
		Short: "Change a food item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
				if _, err := a.repo.Update(ctx, args[0], args[1], args[2]); err != nil {
					return err
				}
				return report(a, out, "")
			})
		},
	}
	root.AddCommand(editCmd)

	removeCmd := &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a food item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
				if _, err := a.repo.Remove(ctx, args[0]); err != nil {
					return err
				}
				return report(a, out, "")
			})
		},
	}
	root.AddCommand(removeCmd)

	linkCmd := &cobra.Command{
		Use:   "link [ID]",
		Short: "Print the form page link for adding, or for editing ID",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
				return runLink(a, out, args)
			})
		},
	}
	root.AddCommand(linkCmd)

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the saved food list so the next start bootstraps again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
				return runReset(ctx, a, out)
			})
		},
	}
	root.AddCommand(resetCmd)
}

// errEphemeralStorage is returned when a one-shot command would write to a
// medium that disappears with the process.
var errEphemeralStorage = errors.New("memory storage does not outlive a single command, set STORAGE_TYPE to a durable medium")

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app, out io.Writer) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := checkPersistent(cfg); err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a, cmd.OutOrStdout())
}

func checkPersistent(cfg config.Config) error {
	if cfg.StorageType == "memory" {
		return errEphemeralStorage
	}
	return nil
}

func runList(a *app, out io.Writer) error {
	items := a.repo.Snapshot()
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, seed.EmptyListPlaceholder)
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCALORIES")
	total := 0
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", item.ID, item.Name, item.Calories)
		total += item.Calories
	}
	fmt.Fprintf(tw, "\tTotal\t%d\n", total)
	return tw.Flush()
}

// report prints the status line the mutation produced, and the new id if
// there is one.
func report(a *app, out io.Writer, id string) error {
	msg := a.notifier.Current()
	if id != "" {
		msg = fmt.Sprintf("%s [%s]", msg, id)
	}
	if !a.repo.Durable() {
		msg += " (not saved: storage unavailable)"
	}
	_, err := fmt.Fprintln(out, msg)
	return err
}

func runLink(a *app, out io.Writer, args []string) error {
	intent := editstate.AddIntent()
	if len(args) == 1 {
		item, ok := a.repo.Get(args[0])
		if !ok {
			return &core.NotFoundError{ID: args[0]}
		}
		intent = editstate.EditIntent(item)
	}
	_, err := fmt.Fprintln(out, intent.Destination(a.cfg.FormPage))
	return err
}

func runReset(ctx context.Context, a *app, out io.Writer) error {
	if err := a.adapter.Clear(ctx); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "Cleared %s\n", a.adapter.Key())
	return err
}
