package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mixwave/quotagate/app"
)

var (
	usageAccountID string
	usageEmail     string
	usageEventID   string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show an account's current allowance",
	Long: `Show an account's plan, usage count, and remaining allowance.

Examples:
  quotagate summary --email=fan@example.com
  quotagate summary --account=acc_123`,
	RunE: runSummary,
}

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Consume one usage unit",
	Long: `Consume one usage unit against the account's quota.

Intended for testing and support; production callers go through the
HTTP surface or the library API.`,
	RunE: runConsume,
}

var refundCmd = &cobra.Command{
	Use:   "refund",
	Short: "Return one usage unit to an account",
	Long: `Return one previously consumed unit to an account.

Examples:
  quotagate refund --email=fan@example.com
  quotagate refund --account=acc_123 --event=ev_456`,
	RunE: runRefund,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(refundCmd)

	for _, c := range []*cobra.Command{summaryCmd, consumeCmd, refundCmd} {
		c.Flags().StringVar(&usageAccountID, "account", "", "account ID")
		c.Flags().StringVar(&usageEmail, "email", "", "account email")
	}
	refundCmd.Flags().StringVar(&usageEventID, "event", "", "usage event ID to refund")
}

func cliIdentity() (app.Identity, error) {
	id := app.Identity{ID: usageAccountID, Email: usageEmail}
	if id.Empty() {
		return app.Identity{}, fmt.Errorf("either --account or --email is required")
	}
	return id, nil
}

func printSummary(s app.Summary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Account:\t%s\n", s.AccountID)
	fmt.Fprintf(w, "Plan:\t%s\n", s.Plan)
	fmt.Fprintf(w, "Used:\t%d\n", s.Used)
	if s.Unlimited {
		fmt.Fprintf(w, "Limit:\tunlimited\n")
		fmt.Fprintf(w, "Remaining:\tunlimited\n")
	} else {
		fmt.Fprintf(w, "Limit:\t%d\n", *s.Limit)
		fmt.Fprintf(w, "Remaining:\t%d\n", s.Remaining)
	}
	fmt.Fprintf(w, "Allowed:\t%v\n", s.Allowed)
	w.Flush()
}

func runSummary(cmd *cobra.Command, args []string) error {
	identity, err := cliIdentity()
	if err != nil {
		return err
	}

	ledger, closeFn, err := openLedger()
	if err != nil {
		return err
	}
	defer closeFn()

	s, err := ledger.Summary(context.Background(), identity)
	if err != nil {
		return fmt.Errorf("failed to get summary: %w", err)
	}
	printSummary(s)
	return nil
}

func runConsume(cmd *cobra.Command, args []string) error {
	identity, err := cliIdentity()
	if err != nil {
		return err
	}

	ledger, closeFn, err := openLedger()
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := ledger.Consume(context.Background(), identity, map[string]string{"source": "cli"})
	if err != nil {
		return fmt.Errorf("failed to consume: %w", err)
	}

	if !res.OK {
		fmt.Printf("Denied: %s\n\n", res.Reason)
	} else {
		fmt.Printf("Consumed (event %s)\n\n", res.EventID)
	}
	printSummary(res.Summary)
	return nil
}

func runRefund(cmd *cobra.Command, args []string) error {
	identity, err := cliIdentity()
	if err != nil {
		return err
	}

	ledger, closeFn, err := openLedger()
	if err != nil {
		return err
	}
	defer closeFn()

	s, err := ledger.Refund(context.Background(), identity, usageEventID)
	if err != nil {
		return fmt.Errorf("failed to refund: %w", err)
	}

	fmt.Println("Refunded")
	fmt.Println()
	printSummary(s)
	return nil
}
