package http

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/snapshot"
)

// ownerHeader carries the authenticated identity. Authentication itself
// happens upstream; the API only scopes data by this value.
const ownerHeader = "X-Owner-ID"

func ownerFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := strings.TrimSpace(r.Header.Get(ownerHeader))
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing "+ownerHeader+" header")
		return "", false
	}
	return owner, true
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	window, err := resolveWindow(r, time.Now())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	summary, err := s.summarize(r, owner, window)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	window, err := resolveWindow(r, time.Now())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	summary, err := s.summarize(r, owner, window)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressDTO(summary.BudgetProgress))
}

type createTransactionRequest struct {
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	Amount      string    `json:"amount,omitempty"` // decimal text, "12.34"
	AmountCents int64     `json:"amountCents,omitempty"`
	OccurredAt  time.Time `json:"occurredAt,omitempty"`
	AccountID   string    `json:"accountId,omitempty"`
	AccountName string    `json:"accountName,omitempty"`
	Description string    `json:"description,omitempty"`
	Force       bool      `json:"force,omitempty"`
}

type createTransactionResponse struct {
	ID                string `json:"id,omitempty"`
	Warning           string `json:"warning,omitempty"`
	NeedsConfirmation bool   `json:"needsConfirmation,omitempty"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents := req.AmountCents
	if req.Amount != "" {
		parsed, err := core.ParseDecimalToCents(req.Amount)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		cents = parsed
	}

	tx := core.Transaction{
		Kind:        core.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Category:    strings.TrimSpace(req.Category),
		Amount:      core.Money{Cents: cents},
		OccurredAt:  req.OccurredAt,
		AccountID:   strings.TrimSpace(req.AccountID),
		AccountName: strings.TrimSpace(req.AccountName),
		Description: strings.TrimSpace(req.Description),
	}

	res, err := s.transactions.Create(r.Context(), owner, tx, req.Force)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if res.NeedsConfirmation {
		writeJSON(w, http.StatusConflict, createTransactionResponse{
			Warning:           res.Warning,
			NeedsConfirmation: true,
		})
		return
	}

	s.bumpGeneration(owner)
	writeJSON(w, http.StatusCreated, createTransactionResponse{ID: res.ID})
}

type transactionDTO struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	AmountCents int64     `json:"amountCents"`
	OccurredAt  time.Time `json:"occurredAt"`
	AccountID   string    `json:"accountId,omitempty"`
	AccountName string    `json:"accountName,omitempty"`
	Description string    `json:"description,omitempty"`
	Deleted     bool      `json:"deleted,omitempty"`
}

// handleListTransactions returns the window's transactions, newest
// first. Soft-deleted entries only appear with includeDeleted=true.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	window, err := resolveWindow(r, time.Now())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	includeDeleted := r.URL.Query().Get("includeDeleted") == "true"

	docs, err := s.store.LoadCollection(r.Context(), owner, snapshot.Transactions)
	if err != nil {
		writeDomainError(w, r, snapshot.ClassifyUpstream(snapshot.Transactions, err))
		return
	}
	txs, _ := snapshot.DecodeTransactions(docs)

	out := make([]transactionDTO, 0, len(txs))
	for _, t := range txs {
		if !window.Contains(t.OccurredAt) {
			continue
		}
		if t.Deleted && !includeDeleted {
			continue
		}
		out = append(out, transactionDTO{
			ID:          t.ID,
			Kind:        string(t.Kind),
			Category:    t.Category,
			AmountCents: t.Amount.Cents,
			OccurredAt:  t.OccurredAt,
			AccountID:   t.AccountID,
			AccountName: t.AccountName,
			Description: t.Description,
			Deleted:     t.Deleted,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	if err := s.transactions.Delete(r.Context(), owner, r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.bumpGeneration(owner)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestoreTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	if err := s.transactions.Restore(r.Context(), owner, r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.bumpGeneration(owner)
	w.WriteHeader(http.StatusNoContent)
}

type accountRequest struct {
	ID              string `json:"id,omitempty"`
	Title           string `json:"title"`
	Icon            string `json:"icon,omitempty"`
	IncomeCents     int64  `json:"incomeCents,omitempty"`
	IncomeFrequency string `json:"incomeFrequency,omitempty"`
}

type accountResponse struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Icon            string `json:"icon,omitempty"`
	BalanceCents    int64  `json:"balanceCents"`
	IncomeCents     int64  `json:"incomeCents,omitempty"`
	IncomeFrequency string `json:"incomeFrequency,omitempty"`
}

func (s *Server) handleSaveAccount(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := s.accounts.SaveAccount(r.Context(), owner, core.Account{
		ID:              strings.TrimSpace(req.ID),
		Title:           strings.TrimSpace(req.Title),
		Icon:            strings.TrimSpace(req.Icon),
		Income:          core.Money{Cents: req.IncomeCents},
		IncomeFrequency: core.Frequency(strings.ToLower(strings.TrimSpace(req.IncomeFrequency))),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.bumpGeneration(owner)
	writeJSON(w, http.StatusOK, accountResponse{
		ID:              account.ID,
		Title:           account.Title,
		Icon:            account.Icon,
		BalanceCents:    account.Balance.Cents,
		IncomeCents:     account.Income.Cents,
		IncomeFrequency: string(account.IncomeFrequency),
	})
}

// handleListAccounts returns the owner's accounts sorted by title.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	docs, err := s.store.LoadCollection(r.Context(), owner, snapshot.Accounts)
	if err != nil {
		writeDomainError(w, r, snapshot.ClassifyUpstream(snapshot.Accounts, err))
		return
	}
	accounts, _ := snapshot.DecodeAccounts(docs)

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse{
			ID:              a.ID,
			Title:           a.Title,
			Icon:            a.Icon,
			BalanceCents:    a.Balance.Cents,
			IncomeCents:     a.Income.Cents,
			IncomeFrequency: string(a.IncomeFrequency),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	if err := s.accounts.DeleteAccount(r.Context(), owner, r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.bumpGeneration(owner)
	w.WriteHeader(http.StatusNoContent)
}

type categoryDTO struct {
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
	Kind        string `json:"kind"`
	Predefined  bool   `json:"predefined"`
}

// handleListCategories returns the merged catalog: predefined entries
// plus the owner's additions, one logical set without duplicates.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	docs, err := s.store.LoadCollection(r.Context(), owner, snapshot.Categories)
	if err != nil {
		writeDomainError(w, r, snapshot.ClassifyUpstream(snapshot.Categories, err))
		return
	}
	userDefined, _ := snapshot.DecodeCategories(docs)

	merged := core.MergeCatalog(
		append(core.PredefinedExpenseCategories(), core.PredefinedIncomeCategories()...),
		userDefined,
	)

	out := make([]categoryDTO, 0, len(merged))
	for _, c := range merged {
		out = append(out, categoryDTO{
			Name:        c.Name,
			Icon:        c.Icon,
			Description: c.Description,
			Kind:        string(c.Kind),
			Predefined:  c.Predefined,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSaveCategory(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	var req categoryDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.accounts.SaveCategory(r.Context(), owner, core.Category{
		Name:        strings.TrimSpace(req.Name),
		Icon:        strings.TrimSpace(req.Icon),
		Description: strings.TrimSpace(req.Description),
		Kind:        core.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.bumpGeneration(owner)
	w.WriteHeader(http.StatusNoContent)
}

type budgetRequest struct {
	Category    string `json:"category"`
	Limit       string `json:"limit,omitempty"` // decimal text, "400.00"
	LimitCents  int64  `json:"limitCents,omitempty"`
	ResetPeriod string `json:"resetPeriod"`
}

type budgetResponse struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	LimitCents  int64  `json:"limitCents"`
	ResetPeriod string `json:"resetPeriod"`
}

// handleSetBudget creates or replaces the single budget of a category.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents := req.LimitCents
	if req.Limit != "" {
		parsed, err := core.ParseDecimalToCents(req.Limit)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		cents = parsed
	}

	budget, err := s.budgets.Set(r.Context(), owner, core.Budget{
		Category:    strings.TrimSpace(req.Category),
		Limit:       core.Money{Cents: cents},
		ResetPeriod: core.Frequency(strings.ToLower(strings.TrimSpace(req.ResetPeriod))),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.bumpGeneration(owner)
	writeJSON(w, http.StatusOK, budgetResponse{
		ID:          budget.ID,
		Category:    budget.Category,
		LimitCents:  budget.Limit.Cents,
		ResetPeriod: string(budget.ResetPeriod),
	})
}

// handleListBudgets returns the configured budgets sorted by category.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	docs, err := s.store.LoadCollection(r.Context(), owner, snapshot.Budgets)
	if err != nil {
		writeDomainError(w, r, snapshot.ClassifyUpstream(snapshot.Budgets, err))
		return
	}
	budgets, _ := snapshot.DecodeBudgets(docs)

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, budgetResponse{
			ID:          b.ID,
			Category:    b.Category,
			LimitCents:  b.Limit.Cents,
			ResetPeriod: string(b.ResetPeriod),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Category) < strings.ToLower(out[j].Category)
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	if err := s.budgets.Delete(r.Context(), owner, r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.bumpGeneration(owner)
	w.WriteHeader(http.StatusNoContent)
}
