package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/lending"
)

func scheduleCmd() *cobra.Command {
	var (
		loanID    string
		principal string
		currency  string
		rate      string
		term      int
		periods   int
		start     string
		method    string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print an amortization schedule",
		Long:  `Computes an amortization schedule locally, without contacting the API.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := domain.ParseMoney(principal, currency)
			if err != nil {
				return err
			}
			annual, err := decimal.NewFromString(rate)
			if err != nil {
				return fmt.Errorf("invalid rate %q: %w", rate, err)
			}
			startDate, err := time.Parse(time.DateOnly, start)
			if err != nil {
				return fmt.Errorf("invalid start date %q: %w", start, err)
			}

			schedule, err := lending.GenerateSchedule(lending.ScheduleRequest{
				LoanID:         loanID,
				Principal:      amount,
				AnnualRate:     annual,
				Term:           term,
				PeriodsPerYear: periods,
				StartDate:      startDate,
				Method:         lending.Method(method),
			})
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), schedule)
			}
			return printSchedule(cmd.OutOrStdout(), schedule)
		},
	}

	cmd.Flags().StringVar(&loanID, "loan", "loan", "Loan identifier")
	cmd.Flags().StringVar(&principal, "principal", "", "Principal amount, e.g. 10000.00")
	cmd.Flags().StringVar(&currency, "currency", "USD", "Currency code")
	cmd.Flags().StringVar(&rate, "rate", "0", "Annual interest rate as a fraction, e.g. 0.12")
	cmd.Flags().IntVar(&term, "term", 12, "Number of installments")
	cmd.Flags().IntVar(&periods, "periods-per-year", 12, "Installments per year (1, 2, 4 or 12)")
	cmd.Flags().StringVar(&start, "start", time.Now().UTC().Format(time.DateOnly), "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&method, "method", string(lending.MethodEqualInstallment), "equal_installment, equal_principal or bullet")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	_ = cmd.MarkFlagRequired("principal")

	return cmd
}

func printSchedule(w io.Writer, s *lending.Schedule) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tDUE\tPAYMENT\tPRINCIPAL\tINTEREST\tREMAINING\t")
	for _, in := range s.Installments {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			in.Number,
			in.DueDate.Format(time.DateOnly),
			in.Payment.StringFixed(),
			in.Principal.StringFixed(),
			in.Interest.StringFixed(),
			in.RemainingBalance.StringFixed(),
		)
	}
	fmt.Fprintf(tw, "\tTOTAL\t%s\t%s\t%s\t\t\n",
		s.TotalPayment.StringFixed(),
		s.Principal.StringFixed(),
		s.TotalInterest.StringFixed(),
	)
	return tw.Flush()
}
