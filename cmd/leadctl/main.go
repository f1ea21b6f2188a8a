package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tasknova/leadgen/internal/dashboard"
	"github.com/tasknova/leadgen/internal/db"
	"github.com/tasknova/leadgen/internal/models"
	"github.com/tasknova/leadgen/internal/payments"
	"github.com/tasknova/leadgen/internal/razorpay"
	"github.com/tasknova/leadgen/internal/repository"
)

var rootCmd = &cobra.Command{
	Use:           "leadctl",
	Short:         "Operator tooling for the lead generation service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL URL (env DATABASE_URL)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("database_url", rootCmd.PersistentFlags().Lookup("database-url"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(migrateCmd(), packagesCmd(), backfillPhonesCmd(), requestsCmd())
}

func withPool(ctx context.Context, fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	url := viper.GetString("database_url")
	if url == "" {
		return fmt.Errorf("DATABASE_URL is required (flag --database-url)")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()
	return fn(ctx, pool)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema and River queue migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
				if err := db.Migrate(ctx, pool, log); err != nil {
					return err
				}
				if err := db.MigrateRiver(ctx, pool); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func packagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "packages",
		Short: "List purchasable lead packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderPackages(cmd.OutOrStdout(), payments.Packages)
		},
	}
}

func renderPackages(w io.Writer, pkgs []payments.Package) error {
	if viper.GetBool("json") {
		return printJSON(w, pkgs)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Name", "Leads", "Price", "Popular"})
	for _, p := range pkgs {
		popular := ""
		if p.IsPopular {
			popular = "yes"
		}
		tw.AppendRow(table.Row{p.ID, p.Name, p.Leads, models.FormatRupees(p.Amount), popular})
	}
	tw.Render()
	return nil
}

func backfillPhonesCmd() *cobra.Command {
	var keyID, keySecret, baseURL string
	cmd := &cobra.Command{
		Use:   "backfill-phones",
		Short: "Fetch missing customer phones for paid orders from the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			keyID = firstNonEmpty(keyID, viper.GetString("razorpay_key_id"))
			keySecret = firstNonEmpty(keySecret, viper.GetString("razorpay_key_secret"))
			if keyID == "" || keySecret == "" {
				return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
			}
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
				gateway := razorpay.NewClient(keyID, keySecret, firstNonEmpty(baseURL, viper.GetString("razorpay_base_url")))
				svc := payments.NewService(repository.NewPaymentOrderRepo(pool), repository.NewProfileRepo(pool), gateway, log)
				report, err := svc.BackfillPhones(ctx)
				if err != nil {
					return err
				}
				return renderBackfill(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&keyID, "key-id", "", "gateway key id (env RAZORPAY_KEY_ID)")
	cmd.Flags().StringVar(&keySecret, "key-secret", "", "gateway key secret (env RAZORPAY_KEY_SECRET)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "gateway API base URL (env RAZORPAY_BASE_URL)")
	return cmd
}

func renderBackfill(w io.Writer, r *payments.BackfillReport) error {
	if viper.GetBool("json") {
		return printJSON(w, r)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Updated", "Failed"})
	tw.AppendRow(table.Row{r.Updated, r.Failed})
	tw.Render()
	if len(r.Errors) > 0 {
		et := table.NewWriter()
		et.SetOutputMirror(w)
		et.AppendHeader(table.Row{"Error"})
		for _, e := range r.Errors {
			et.AppendRow(table.Row{e})
		}
		et.Render()
	}
	return nil
}

func requestsCmd() *cobra.Command {
	var account string
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List an account's lead requests with their display status",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(account)
			if err != nil {
				return fmt.Errorf("--account must be a UUID: %w", err)
			}
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				list, err := repository.NewLeadRequestRepo(pool).ListByUser(ctx, id)
				if err != nil {
					return err
				}
				return renderRequests(cmd.OutOrStdout(), dashboard.LeadRequestViews(list))
			})
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "account id")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func renderRequests(w io.Writer, views []dashboard.LeadRequestView) error {
	if viper.GetBool("json") {
		return printJSON(w, views)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Created", "Summary", "Free", "Leads", "Status"})
	for _, v := range views {
		tw.AppendRow(table.Row{v.ID, v.CreatedAt.Format("2006-01-02 15:04"), v.Summary, v.IsFreeRequest, v.LeadCount, v.StatusView.Label})
	}
	tw.Render()
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
