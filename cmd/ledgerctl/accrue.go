package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/AlexShrike/nexum-sub002/internal/lending"
)

func accrueCmd(opts *options) *cobra.Command {
	var (
		loanID     string
		balance    string
		currency   string
		rate       string
		basis      string
		cycleDay   int
		start      string
		receivable string
		income     string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "accrue",
		Short: "Accrue and post one interest period for a loan",
		Long: `Accrues daily interest on a flat balance from --start up to the next cycle day and
posts it as an interest_accrual transaction. Running the same period again replays it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := time.Parse(time.DateOnly, start)
			if err != nil {
				return fmt.Errorf("invalid start date %q: %w", start, err)
			}
			if _, err := lending.ParseDayCountBasis(basis); err != nil {
				return err
			}

			body := map[string]any{
				"loan_id":               loanID,
				"balance":               moneyView{Amount: balance, Currency: currency},
				"annual_rate":           rate,
				"basis":                 basis,
				"cycle_day":             cycleDay,
				"period_start":          startDate,
				"receivable_account_id": receivable,
				"income_account_id":     income,
			}

			var resp struct {
				LoanID      string    `json:"loan_id"`
				PeriodStart time.Time `json:"period_start"`
				PeriodEnd   time.Time `json:"period_end"`
				Days        int       `json:"days"`
				Amount      moneyView `json:"amount"`
				Residual    string    `json:"residual"`
				Result      *struct {
					ID       string `json:"id"`
					Status   string `json:"status"`
					Replayed bool   `json:"replayed"`
				} `json:"result"`
			}
			_, err = newAPIClient(opts).do(http.MethodPost, "/api/v1/interest/accruals", nil, body, &resp,
				http.StatusUnprocessableEntity, http.StatusServiceUnavailable)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if err := printJSON(out, resp); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Loan:     %s\nPeriod:   %s to %s (%d days)\nInterest: %s %s\nCarried:  %s\n",
					resp.LoanID, resp.PeriodStart.Format(time.DateOnly), resp.PeriodEnd.Format(time.DateOnly), resp.Days,
					resp.Amount.Amount, resp.Amount.Currency, resp.Residual)
				switch {
				case resp.Result == nil:
					fmt.Fprintln(out, "Nothing to post; carried forward")
				case resp.Result.Replayed:
					fmt.Fprintf(out, "Already posted as %s (%s)\n", resp.Result.ID, resp.Result.Status)
				default:
					fmt.Fprintf(out, "Posted as %s (%s)\n", resp.Result.ID, resp.Result.Status)
				}
			}

			if resp.Result != nil && resp.Result.Status != "completed" {
				return fmt.Errorf("accrual transaction %s", resp.Result.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&loanID, "loan", "", "Loan identifier")
	cmd.Flags().StringVar(&balance, "balance", "", "Outstanding balance over the period, e.g. 10000.00")
	cmd.Flags().StringVar(&currency, "currency", "USD", "Currency code")
	cmd.Flags().StringVar(&rate, "rate", "0", "Annual interest rate as a fraction, e.g. 0.05")
	cmd.Flags().StringVar(&basis, "basis", string(lending.Actual365Fixed), "Day count basis: ACT/360, ACT/365F, 30/360 or ACT/ACT")
	cmd.Flags().IntVar(&cycleDay, "cycle-day", 1, "Day of month that opens a new period (1-28)")
	cmd.Flags().StringVar(&start, "start", "", "First day of the period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&receivable, "receivable", "", "Interest receivable account id")
	cmd.Flags().StringVar(&income, "income", "", "Interest income account id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a summary")
	for _, name := range []string{"loan", "balance", "start", "receivable", "income"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
