package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/altarhq/altar/pkg/model"
	"github.com/altarhq/altar/pkg/storage/scoped"
	"github.com/altarhq/altar/pkg/transport"
	"github.com/altarhq/altar/pkg/wedding"
)

// NewAdminCommand creates the admin command group. Admin commands run
// without a tenant scope.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Platform administration",
	}
	cmd.AddCommand(newAdminTenantsCommand(rootOpts))
	return cmd
}

func newAdminTenantsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		limit  int
		offset int
		format string
	)

	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "List tenants, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("invalid format %q: must be text or json", format)
			}
			ctx := cmd.Context()

			db, err := openStorage(ctx, rootOpts.Config.Storage, false)
			if err != nil {
				return err
			}
			defer db.Close()

			svc, err := wedding.New(scoped.New(db, model.Default()), wedding.DefaultConfig())
			if err != nil {
				return err
			}
			list, err := svc.ListTenants(ctx, transport.ListOptions{Limit: limit, Offset: offset})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSLUG\tCUSTOM DOMAIN\tVERIFIED\tCREATED")
			for _, t := range list.Data {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n",
					t.ID, t.Slug, t.CustomDomain, t.DomainVerified, t.CreatedAt.Format(time.RFC3339))
			}
			if list.HasMore {
				fmt.Fprintln(tw, "...\t\t\t\t")
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of tenants")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of tenants to skip")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text|json)")
	return cmd
}
