package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"text/tabwriter"

	projectapp "github.com/obras/backend/internal/application/project"
	"github.com/obras/backend/internal/domain/project"
	"github.com/obras/backend/internal/domain/shared/valueobject"
	"github.com/spf13/cobra"
)

func listCommand(flags *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				projects, err := a.store.List(ctx, limit)
				if err != nil {
					return err
				}
				currency := flags.displayCurrency()
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNUMBER\tNAME\tCONTRACT\tRECEIVABLE")
				for _, p := range projects {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						p.ID, p.ProjectNumber, p.Name,
						valueobject.FormatAmountIn(p.ContractAmount, currency),
						valueobject.FormatAmountIn(p.Figures.ReceivableBalance, currency),
					)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of projects (0 lists all)")
	return cmd
}

func showCommand(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id|number>",
		Short: "Show a project with its category ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				ctl, err := a.open(ctx, args[0])
				if err != nil {
					return err
				}
				return printView(cmd.OutOrStdout(), ctl, flags.displayCurrency(), asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the display view as JSON")
	return cmd
}

func createCommand(flags *globalFlags) *cobra.Command {
	var client, contract, advances, budget string
	cmd := &cobra.Command{
		Use:   "create <number> <name>",
		Short: "Create a project with the default category ledger",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				ctl, err := a.service.Create(ctx, projectapp.CreateProjectRequest{
					ProjectNumber:    args[0],
					Name:             args[1],
					Client:           client,
					ContractAmount:   optional(contract),
					AdvancesReceived: optional(advances),
					Budget:           optional(budget),
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ctl.ID())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&client, "client", "", "Client name")
	cmd.Flags().StringVar(&contract, "contract", "", "Contract amount")
	cmd.Flags().StringVar(&advances, "advances", "", "Advances received")
	cmd.Flags().StringVar(&budget, "budget", "", "Project budget")
	return cmd
}

func setCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id|number> <field> <value>",
		Short: "Set a project input (contract_amount, advances_received, budget)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				ctl, err := a.open(ctx, args[0])
				if err != nil {
					return err
				}
				if err := ctl.SetField(ctx, project.ProjectField(args[1]), args[2]); err != nil {
					return err
				}
				return printView(cmd.OutOrStdout(), ctl, flags.displayCurrency(), false)
			})
		},
	}
}

func setCategoryCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set-category <id|number> <category-id> <field> <value>",
		Short: "Set a category field (budget, contract_value, disbursed, outstanding_balance)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			categoryID, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid category id %q", args[1])
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				ctl, err := a.open(ctx, args[0])
				if err != nil {
					return err
				}
				found, err := ctl.SetCategoryField(ctx, categoryID, project.CategoryField(args[2]), args[3])
				if err != nil {
					return err
				}
				if !found {
					return project.ErrCategoryNotFound
				}
				return printView(cmd.OutOrStdout(), ctl, flags.displayCurrency(), false)
			})
		},
	}
}

func addCategoryCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add-category <id|number> <name>",
		Short: "Append a category row to a project's ledger",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				ctl, err := a.open(ctx, args[0])
				if err != nil {
					return err
				}
				row := ctl.AddCategory(ctx, args[1])
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", row.ID, row.Name)
				return nil
			})
		},
	}
}

func refreshCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <id|number>",
		Short: "Reload a project from the store and reconcile derived figures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				id, err := a.resolve(ctx, args[0])
				if err != nil {
					return err
				}
				if _, err := a.service.Open(ctx, id); err != nil {
					return err
				}
				res, err := a.service.Refresh(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "changed=%t recomputed=%t appended=%v\n",
					res.Changed, res.Recompute, res.Appended)
				return nil
			})
		},
	}
}

func printView(out io.Writer, ctl *projectapp.ProjectDetailController, currency valueobject.Currency, asJSON bool) error {
	view := projectapp.BuildDisplayView(ctl.View(), currency)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	fmt.Fprintf(out, "%s  %s", view.ProjectNumber, view.Name)
	if view.Client != "" {
		fmt.Fprintf(out, "  (%s)", view.Client)
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, f := range project.ProjectFields {
		fmt.Fprintf(w, "%s\t%s\n", f, view.Inputs[string(f)])
	}
	for _, k := range slices.Sorted(maps.Keys(view.Figures)) {
		fmt.Fprintf(w, "%s\t%s\n", k, view.Figures[k])
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "ID\tCATEGORY\tBUDGET\tCONTRACT\tDISBURSED\tOUTSTANDING")
	for _, r := range view.Rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Budget, r.ContractValue, r.Disbursed, r.OutstandingBalance)
	}
	f := view.Footer
	fmt.Fprintf(w, "\t%s\t%s\t%s\t%s\t%s\n", f.Name, f.Budget, f.ContractValue, f.Disbursed, f.OutstandingBalance)
	return w.Flush()
}

// optional maps an unset flag to a nil input so the project keeps zero
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
