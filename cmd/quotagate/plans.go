package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mixwave/quotagate/app"
)

var (
	planName    string
	planMaxUses int64
)

var setPlanCmd = &cobra.Command{
	Use:   "set-plan",
	Short: "Move an account to a new plan",
	Long: `Move an account to a new plan.

The plan name decides the quota: unlimited plans clear any explicit cap,
limited plans fall back to the catalog default unless --max-uses is
given. Applying an account's current plan is a no-op.

Examples:
  quotagate set-plan --email=fan@example.com --plan=founder
  quotagate set-plan --account=acc_123 --plan=free --max-uses=10`,
	RunE: runSetPlan,
}

func init() {
	rootCmd.AddCommand(setPlanCmd)

	setPlanCmd.Flags().StringVar(&usageAccountID, "account", "", "account ID")
	setPlanCmd.Flags().StringVar(&usageEmail, "email", "", "account email")
	setPlanCmd.Flags().StringVar(&planName, "plan", "", "plan name (required)")
	setPlanCmd.Flags().Int64Var(&planMaxUses, "max-uses", 0, "explicit quota override (0 = plan default)")
	setPlanCmd.MarkFlagRequired("plan")
}

func runSetPlan(cmd *cobra.Command, args []string) error {
	identity, err := cliIdentity()
	if err != nil {
		return err
	}

	ledger, closeFn, err := openLedger()
	if err != nil {
		return err
	}
	defer closeFn()

	var opts app.SetPlanOptions
	if planMaxUses > 0 {
		opts.MaxUses = &planMaxUses
	}

	res, err := ledger.SetPlan(context.Background(), identity, planName, opts)
	if err != nil {
		return fmt.Errorf("failed to set plan: %w", err)
	}

	fmt.Printf("Account %s is now on plan %q\n", res.AccountID, res.Plan)
	if res.Unlimited {
		fmt.Println("Quota: unlimited")
	} else if res.MaxUses != nil {
		fmt.Printf("Quota: %d uses\n", *res.MaxUses)
	}
	return nil
}
