package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// apiError is a non-2xx answer from the ledger API.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Status, truncate(strings.TrimSpace(e.Body), 200))
}

type apiClient struct {
	baseURL string
	actor   string
	http    *http.Client
}

func newAPIClient(opts *options) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(opts.baseURL, "/"),
		actor:   opts.actor,
		http:    &http.Client{Timeout: opts.timeout},
	}
}

// do sends a request and decodes a JSON answer into out. Statuses listed in accept are
// decoded like 2xx answers.
func (c *apiClient) do(method, path string, query url.Values, body, out any, accept ...int) (int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, u, r)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.actor != "" {
		req.Header.Set("X-Actor", c.actor)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	for _, s := range accept {
		ok = ok || resp.StatusCode == s
	}
	if !ok {
		return resp.StatusCode, &apiError{Status: resp.StatusCode, Body: string(data)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

type moneyView struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func balanceCmd(opts *options) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Show an account balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if asOf != "" {
				q.Set("as_of", asOf)
			}

			var resp struct {
				AccountID string      `json:"account_id"`
				AsOf      string      `json:"as_of"`
				Amounts   []moneyView `json:"amounts"`
			}
			if _, err := newAPIClient(opts).do(http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0])+"/balance", q, nil, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Account: %s\nAs of:   %s\n", resp.AccountID, resp.AsOf)
			if len(resp.Amounts) == 0 {
				fmt.Fprintln(out, "No postings")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, m := range resp.Amounts {
				fmt.Fprintf(tw, "%s\t%s\n", m.Currency, m.Amount)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "Balance as of an RFC 3339 time or YYYY-MM-DD")
	return cmd
}

func statementCmd(opts *options) *cobra.Command {
	var from, to, currency string

	cmd := &cobra.Command{
		Use:   "statement <account-id>",
		Short: "Show an account's postings with running balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for k, v := range map[string]string{"from": from, "to": to, "currency": currency} {
				if v != "" {
					q.Set(k, v)
				}
			}

			var resp struct {
				AccountID string    `json:"account_id"`
				Currency  string    `json:"currency"`
				Opening   moneyView `json:"opening"`
				Closing   moneyView `json:"closing"`
				Lines     []struct {
					EntryID   string    `json:"entry_id"`
					PostedAt  string    `json:"posted_at"`
					Direction string    `json:"direction"`
					Amount    moneyView `json:"amount"`
					Balance   moneyView `json:"balance"`
				} `json:"lines"`
			}
			if _, err := newAPIClient(opts).do(http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0])+"/statement", q, nil, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Account: %s (%s)\n", resp.AccountID, resp.Currency)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "POSTED\tENTRY\tSIDE\tAMOUNT\tBALANCE")
			fmt.Fprintf(tw, "\tOPENING\t\t\t%s\n", resp.Opening.Amount)
			for _, l := range resp.Lines {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.PostedAt, l.EntryID, l.Direction, l.Amount.Amount, l.Balance.Amount)
			}
			fmt.Fprintf(tw, "\tCLOSING\t\t\t%s\n", resp.Closing.Amount)
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Window start, RFC 3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Window end, RFC 3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&currency, "currency", "", "Currency (defaults to the account's)")
	return cmd
}

type verification struct {
	Valid         bool   `json:"valid"`
	EventsChecked int    `json:"events_checked"`
	FirstBreak    *int64 `json:"first_break,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

func auditCmd(opts *options) *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit chain operations",
	}

	var from, to int64
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Recompute the audit hash chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("from_seq", fmt.Sprint(from))
			if to > 0 {
				q.Set("to_seq", fmt.Sprint(to))
			}

			var res verification
			if _, err := newAPIClient(opts).do(http.MethodGet, "/api/v1/audit/verify", q, nil, &res, http.StatusConflict); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.Valid {
				brk := int64(0)
				if res.FirstBreak != nil {
					brk = *res.FirstBreak
				}
				fmt.Fprintf(out, "Audit chain BROKEN at sequence %d: %s\n", brk, res.Reason)
				return fmt.Errorf("audit chain verification failed after %d events", res.EventsChecked)
			}
			fmt.Fprintf(out, "Audit chain OK (%d events checked)\n", res.EventsChecked)
			return nil
		},
	}
	verifyCmd.Flags().Int64Var(&from, "from", 1, "First sequence to check")
	verifyCmd.Flags().Int64Var(&to, "to", 0, "Last sequence to check (0 for the head)")

	var entityID string
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", fmt.Sprint(limit))
			if entityID != "" {
				q.Set("entity_id", entityID)
			}

			var resp struct {
				Events []struct {
					Sequence  int64  `json:"sequence"`
					Timestamp string `json:"timestamp"`
					Actor     string `json:"actor"`
					Action    string `json:"action"`
					EntityID  string `json:"entity_id"`
					Hash      string `json:"hash"`
				} `json:"events"`
			}
			if _, err := newAPIClient(opts).do(http.MethodGet, "/api/v1/audit", q, nil, &resp); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SEQ\tTIME\tACTOR\tACTION\tENTITY\tHASH")
			for _, ev := range resp.Events {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", ev.Sequence, ev.Timestamp, ev.Actor, ev.Action, ev.EntityID, truncate(ev.Hash, 15))
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringVar(&entityID, "entity", "", "Only events for this entity")
	listCmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of events")

	auditCmd.AddCommand(verifyCmd, listCmd)
	return auditCmd
}

func reconcileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Check ledger totals and audit chain health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				OK     bool `json:"ok"`
				Report struct {
					Currencies []struct {
						Currency string `json:"currency"`
						Debits   string `json:"debits"`
						Credits  string `json:"credits"`
					} `json:"currencies"`
					LedgerConsistent bool         `json:"ledger_consistent"`
					Audit            verification `json:"audit"`
				} `json:"report"`
			}
			if _, err := newAPIClient(opts).do(http.MethodGet, "/api/v1/reconciliation", nil, nil, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CURRENCY\tDEBITS\tCREDITS")
			for _, c := range resp.Report.Currencies {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Currency, c.Debits, c.Credits)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Ledger consistent: %v\nAudit chain valid: %v (%d events)\n",
				resp.Report.LedgerConsistent, resp.Report.Audit.Valid, resp.Report.Audit.EventsChecked)

			if !resp.OK {
				return fmt.Errorf("reconciliation FAILED")
			}
			fmt.Fprintln(out, "Reconciliation PASSED")
			return nil
		},
	}
}

func txCmd(opts *options) *cobra.Command {
	txCmd := &cobra.Command{
		Use:   "tx",
		Short: "Business transaction operations",
	}

	getCmd := &cobra.Command{
		Use:   "get <transaction-id>",
		Short: "Show a transaction result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res map[string]any
			if _, err := newAPIClient(opts).do(http.MethodGet, "/api/v1/transactions/"+url.PathEscape(args[0]), nil, nil, &res); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	reverseCmd := &cobra.Command{
		Use:   "reverse <transaction-id>",
		Short: "Reverse every entry a completed transaction posted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res map[string]any
			body := map[string]string{"actor": opts.actor}
			if _, err := newAPIClient(opts).do(http.MethodPost, "/api/v1/transactions/"+url.PathEscape(args[0])+"/reverse", nil, body, &res); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	txCmd.AddCommand(getCmd, reverseCmd)
	return txCmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
