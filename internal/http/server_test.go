package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	tx := services.NewTransactionService(store, nil)
	budgets := services.NewBudgetService(store, nil)
	accounts := services.NewAccountService(store, nil)
	return NewServer(":0", store, tx, budgets, accounts, Options{}), store
}

func doJSON(t *testing.T, s *Server, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestServer_RequiresOwner(t *testing.T) {
	s, _ := newTestServer(t)
	defer s.Shutdown(context.Background())

	rec := doJSON(t, s, http.MethodGet, "/api/summary", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestServer_HealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	defer s.Shutdown(context.Background())

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestServer_TransactionLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	defer s.Shutdown(context.Background())

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", "user-1",
		`{"kind":"expense","category":"Food","amount":"12.50","occurredAt":"2024-03-10T12:00:00Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[createTransactionResponse](t, rec)
	if created.ID == "" {
		t.Fatal("create should return an id")
	}

	rec = doJSON(t, s, http.MethodGet, "/api/summary?mode=monthly&year=2024&month=3", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d, body = %s", rec.Code, rec.Body.String())
	}
	sum := decodeBody[summaryDTO](t, rec)
	if sum.TotalExpensesCents != 1250 {
		t.Errorf("TotalExpensesCents = %d, want 1250", sum.TotalExpensesCents)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/"+created.ID, "user-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	// Soft-deleted transactions vanish from aggregates immediately.
	rec = doJSON(t, s, http.MethodGet, "/api/summary?mode=monthly&year=2024&month=3", "user-1", "")
	sum = decodeBody[summaryDTO](t, rec)
	if sum.TotalExpensesCents != 0 {
		t.Errorf("TotalExpensesCents after delete = %d, want 0", sum.TotalExpensesCents)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/transactions/"+created.ID+"/restore", "user-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("restore status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/summary?mode=monthly&year=2024&month=3", "user-1", "")
	sum = decodeBody[summaryDTO](t, rec)
	if sum.TotalExpensesCents != 1250 {
		t.Errorf("TotalExpensesCents after restore = %d, want 1250", sum.TotalExpensesCents)
	}
}

func TestServer_BudgetWarningFlow(t *testing.T) {
	s, _ := newTestServer(t)
	defer s.Shutdown(context.Background())

	rec := doJSON(t, s, http.MethodPut, "/api/budgets", "user-1",
		`{"category":"Food","limit":"100.00","resetPeriod":"monthly"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set budget status = %d, body = %s", rec.Code, rec.Body.String())
	}
	budget := decodeBody[budgetResponse](t, rec)
	if budget.LimitCents != 10000 {
		t.Errorf("LimitCents = %d, want 10000", budget.LimitCents)
	}

	// 95.00 against a 100.00 limit crosses the warning threshold.
	rec = doJSON(t, s, http.MethodPost, "/api/transactions", "user-1",
		`{"kind":"expense","category":"Food","amount":"95.00"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("warned create status = %d, want 409; body = %s", rec.Code, rec.Body.String())
	}
	res := decodeBody[createTransactionResponse](t, rec)
	if !res.NeedsConfirmation || res.Warning == "" {
		t.Errorf("expected confirmation prompt, got %+v", res)
	}

	// Confirmed save goes through.
	rec = doJSON(t, s, http.MethodPost, "/api/transactions", "user-1",
		`{"kind":"expense","category":"Food","amount":"95.00","force":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("forced create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/budgets/progress", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status = %d", rec.Code)
	}
	rows := decodeBody[[]progressDTO](t, rec)
	if len(rows) != 1 || rows[0].Category != "Food" {
		t.Fatalf("progress rows = %+v, want one Food row", rows)
	}
	if rows[0].Status != "warning" {
		t.Errorf("status = %s, want warning at 95%%", rows[0].Status)
	}
}

func TestServer_InvalidPeriod(t *testing.T) {
	s, _ := newTestServer(t)
	defer s.Shutdown(context.Background())

	for _, q := range []string{"?mode=quarterly", "?month=13", "?month=Janiary"} {
		rec := doJSON(t, s, http.MethodGet, "/api/summary"+q, "user-1", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("summary%s status = %d, want 400", q, rec.Code)
		}
	}
}

func TestServer_Categories(t *testing.T) {
	s, _ := newTestServer(t)
	defer s.Shutdown(context.Background())

	rec := doJSON(t, s, http.MethodPost, "/api/categories", "user-1",
		`{"name":"Pets","kind":"expense","icon":"paw"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("save category status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/categories", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list categories status = %d", rec.Code)
	}
	cats := decodeBody[[]categoryDTO](t, rec)

	var sawPredefined, sawCustom bool
	names := make(map[string]int)
	for _, c := range cats {
		names[c.Kind+"/"+c.Name]++
		if c.Name == "Food" && c.Predefined {
			sawPredefined = true
		}
		if c.Name == "Pets" && !c.Predefined {
			sawCustom = true
		}
	}
	if !sawPredefined || !sawCustom {
		t.Errorf("catalog should merge predefined and custom entries: %+v", cats)
	}
	for key, n := range names {
		if n > 1 {
			t.Errorf("duplicate catalog entry %s", key)
		}
	}
}

func TestServer_AccountLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	defer s.Shutdown(context.Background())

	rec := doJSON(t, s, http.MethodPost, "/api/accounts", "user-1",
		`{"title":"Checking","incomeCents":300000,"incomeFrequency":"monthly"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save account status = %d, body = %s", rec.Code, rec.Body.String())
	}
	acc := decodeBody[accountResponse](t, rec)
	if acc.ID == "" {
		t.Fatal("account should get an id")
	}

	// A transaction against a deleted account is rejected atomically.
	rec = doJSON(t, s, http.MethodDelete, "/api/accounts/"+acc.ID, "user-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete account status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPost, "/api/transactions", "user-1",
		`{"kind":"expense","category":"Food","amount":"5.00","accountId":"`+acc.ID+`"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("create against deleted account status = %d, want 409", rec.Code)
	}
}

func TestServer_ListTransactions(t *testing.T) {
	s, _ := newTestServer(t)
	defer s.Shutdown(context.Background())

	for _, body := range []string{
		`{"kind":"expense","category":"Food","amount":"10.00","occurredAt":"2024-03-10T12:00:00Z"}`,
		`{"kind":"income","category":"Salary","amount":"50.00","occurredAt":"2024-03-20T12:00:00Z"}`,
		`{"kind":"expense","category":"Food","amount":"7.00","occurredAt":"2024-04-02T12:00:00Z"}`,
	} {
		if rec := doJSON(t, s, http.MethodPost, "/api/transactions", "user-1", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed create status = %d, body = %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/transactions?year=2024&month=March", "user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, body = %s", rec.Code, rec.Body.String())
	}
	txs := decodeBody[[]transactionDTO](t, rec)
	if len(txs) != 2 {
		t.Fatalf("got %d transactions for March, want 2", len(txs))
	}
	// Newest first.
	if txs[0].Category != "Salary" || txs[1].Category != "Food" {
		t.Errorf("order = [%s %s], want newest first", txs[0].Category, txs[1].Category)
	}

	// Soft-deleted entries stay hidden unless asked for.
	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/"+txs[1].ID, "user-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/transactions?year=2024&month=3", "user-1", "")
	if got := decodeBody[[]transactionDTO](t, rec); len(got) != 1 {
		t.Errorf("got %d transactions after delete, want 1", len(got))
	}
	rec = doJSON(t, s, http.MethodGet, "/api/transactions?year=2024&month=3&includeDeleted=true", "user-1", "")
	if got := decodeBody[[]transactionDTO](t, rec); len(got) != 2 {
		t.Errorf("got %d transactions with includeDeleted, want 2", len(got))
	}
}

func TestServer_ListAccountsAndBudgets(t *testing.T) {
	s, _ := newTestServer(t)
	defer s.Shutdown(context.Background())

	for _, title := range []string{"Savings", "checking"} {
		rec := doJSON(t, s, http.MethodPost, "/api/accounts", "user-1", `{"title":"`+title+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("save account status = %d, body = %s", rec.Code, rec.Body.String())
		}
	}
	rec := doJSON(t, s, http.MethodGet, "/api/accounts", "user-1", "")
	accounts := decodeBody[[]accountResponse](t, rec)
	if len(accounts) != 2 || accounts[0].Title != "checking" {
		t.Errorf("accounts = %+v, want case-insensitive title order", accounts)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/budgets", "user-1",
		`{"category":"Food","limitCents":20000,"resetPeriod":"monthly"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set budget status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, s, http.MethodGet, "/api/budgets", "user-1", "")
	budgets := decodeBody[[]budgetResponse](t, rec)
	if len(budgets) != 1 || budgets[0].LimitCents != 20000 {
		t.Errorf("budgets = %+v, want one Food budget of 20000", budgets)
	}
}

func TestServer_SummaryCacheInvalidation(t *testing.T) {
	s, _ := newTestServer(t)
	defer s.Shutdown(context.Background())

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", "user-1",
		`{"kind":"expense","category":"Food","amount":"10.00","occurredAt":"2024-03-10T12:00:00Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/summary?year=2024&month=3", "user-1", "")
	first := decodeBody[summaryDTO](t, rec)

	// A second write must be visible on the next read, cached or not.
	rec = doJSON(t, s, http.MethodPost, "/api/transactions", "user-1",
		`{"kind":"expense","category":"Food","amount":"10.00","occurredAt":"2024-03-11T12:00:00Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatal(rec.Body.String())
	}
	rec = doJSON(t, s, http.MethodGet, "/api/summary?year=2024&month=3", "user-1", "")
	second := decodeBody[summaryDTO](t, rec)

	if second.TotalExpensesCents != first.TotalExpensesCents+1000 {
		t.Errorf("TotalExpensesCents = %d, want %d", second.TotalExpensesCents, first.TotalExpensesCents+1000)
	}
}
