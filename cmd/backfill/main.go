// Command backfill fills missing subscription fields and audits stored subscription data.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatflowers/entitlement/internal/app"
	"github.com/fatflowers/entitlement/internal/app/service/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var timeout time.Duration

var rootCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Subscription data maintenance",
	Long:  `Fills subscription fields that were never written and reports records that break the subscription rules.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fill missing subscription fields with defaults",
	Long: `Pages through all users in id order and fills NULL subscription fields with the
canonical defaults (tier=free, status=expired, autoRenewStatus=false, isTrialPeriod=false).
Populated fields are never overwritten, so the command is safe to re-run after a failure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *migration.Service) error {
			res := svc.Migrate(ctx)
			if err := printJSON(res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("backfill failed after %d users: %s", res.TotalProcessed, res.Error)
			}
			return nil
		})
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report stored records that break the subscription rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *migration.Service) error {
			report, err := svc.Audit(ctx)
			if err != nil {
				return err
			}
			return printJSON(report)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Hour, "overall time limit for the command")
	rootCmd.AddCommand(runCmd, auditCmd)
}

// withService starts the storage part of the application, runs fn and stops it again.
func withService(parent context.Context, fn func(ctx context.Context, svc *migration.Service) error) error {
	var (
		svc *migration.Service
		log *zap.SugaredLogger
	)
	a := fx.New(app.CoreModule, fx.Populate(&svc, &log), fx.NopLogger)

	startCtx, cancel := context.WithTimeout(parent, app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
		defer cancel()
		if err := a.Stop(stopCtx); err != nil {
			log.Errorf("failed to stop: %v", err)
		}
	}()

	ctx, cancelRun := context.WithTimeout(parent, timeout)
	defer cancelRun()
	return fn(ctx, svc)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
