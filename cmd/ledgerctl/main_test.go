package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}); err != nil {
		t.Fatalf("printJSON failed: %v", err)
	}

	expected := "{\n  \"a\": 1\n}\n"
	if buf.String() != expected {
		t.Fatalf("unexpected json output:\n%s", buf.String())
	}
}

func TestScheduleCmd(t *testing.T) {
	out, err := execute(t, "schedule", "--principal", "10000", "--rate", "0.12", "--term", "12", "--start", "2024-01-01")
	if err != nil {
		t.Fatalf("command failed: %v\n%s", err, out)
	}

	if !strings.Contains(out, "888.49") {
		t.Fatalf("expected installment 888.49 in output:\n%s", out)
	}
	if !strings.Contains(out, "TOTAL") {
		t.Fatalf("expected totals row:\n%s", out)
	}
}

func TestScheduleCmd_InvalidTerm(t *testing.T) {
	if _, err := execute(t, "schedule", "--principal", "100", "--term", "0", "--start", "2024-01-01"); err == nil {
		t.Fatal("expected error for zero term")
	}
}

func TestBalanceCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts/acc-1/balance" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("as_of") != "2024-03-31" {
			t.Errorf("expected as_of query, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("X-Actor") != "tester" {
			t.Errorf("expected actor header, got %q", r.Header.Get("X-Actor"))
		}
		_, _ = w.Write([]byte(`{"account_id":"acc-1","as_of":"2024-03-31T23:59:59Z","amounts":[{"amount":"70.00","currency":"USD"}]}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "--actor", "tester", "balance", "acc-1", "--as-of", "2024-03-31")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(out, "USD") || !strings.Contains(out, "70.00") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestAuditVerifyCmd(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{"valid", http.StatusOK, `{"valid":true,"events_checked":42}`, "Audit chain OK (42 events checked)", false},
		{"broken", http.StatusConflict, `{"valid":false,"events_checked":7,"first_break":7,"reason":"hash mismatch"}`, "BROKEN at sequence 7: hash mismatch", true},
		{"server error", http.StatusServiceUnavailable, `{"error":"down"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			out, err := execute(t, "--url", srv.URL, "audit", "verify")
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if !strings.Contains(out, tt.want) {
				t.Fatalf("expected %q in output:\n%s", tt.want, out)
			}
		})
	}
}

func TestReconcileCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"report":{"currencies":[{"currency":"USD","debits":"130","credits":"130"}],"ledger_consistent":true,"audit":{"valid":true,"events_checked":9}}}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "reconcile")
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if !strings.Contains(out, "Reconciliation PASSED") || !strings.Contains(out, "130") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestMigrateCmd_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := execute(t, "migrate", "up"); err == nil || !strings.Contains(err.Error(), "database-url") {
		t.Fatalf("expected database url error, got %v", err)
	}
}

func TestStatementCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts/acc-1/statement" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("from") != "2024-01-01" {
			t.Errorf("expected from query, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"account_id":"acc-1","currency":"USD",
			"opening":{"amount":"100.00","currency":"USD"},
			"closing":{"amount":"70.00","currency":"USD"},
			"lines":[{"entry_id":"e-1","posted_at":"2024-01-02T00:00:00Z","direction":"debit",
				"amount":{"amount":"30.00","currency":"USD"},"balance":{"amount":"70.00","currency":"USD"}}]}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "statement", "acc-1", "--from", "2024-01-01")
	if err != nil {
		t.Fatalf("command failed: %v\n%s", err, out)
	}
	for _, want := range []string{"OPENING", "100.00", "e-1", "CLOSING", "70.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestAccrueCmd(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/interest/accruals" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"loan_id":"loan-7","period_start":"2024-01-01T00:00:00Z","period_end":"2024-01-31T00:00:00Z",
			"days":31,"amount":{"amount":"42.47","currency":"USD"},"residual":"-0.0043",
			"result":{"id":"txn-9","status":"completed"}}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "accrue",
		"--loan", "loan-7", "--balance", "10000.00", "--rate", "0.05",
		"--start", "2024-01-01", "--receivable", "acc-r", "--income", "acc-i")
	if err != nil {
		t.Fatalf("command failed: %v\n%s", err, out)
	}
	for _, want := range []string{"2024-01-01 to 2024-01-31 (31 days)", "42.47 USD", "Posted as txn-9"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if got["basis"] != "ACT/365F" || got["cycle_day"] != float64(1) || got["receivable_account_id"] != "acc-r" {
		t.Fatalf("unexpected request body %+v", got)
	}

	if _, err := execute(t, "--url", srv.URL, "accrue", "--loan", "l", "--balance", "1", "--start", "2024-01-01",
		"--receivable", "r", "--income", "i", "--basis", "ACT/999"); err == nil {
		t.Fatal("expected unknown basis to fail before calling the API")
	}
}
