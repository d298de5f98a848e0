package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"finpulse/internal/core"
	"finpulse/internal/log"
)

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request, ownerID string) {
	accountID, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	res, err := s.balances.Resolve(r.Context(), ownerID, accountID)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "Balance resolution failed",
			log.FieldAccountID, accountID, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "balance resolution failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type overrideRequest struct {
	// Balance is a decimal string, e.g. "1234.56".
	Balance string `json:"balance"`
	Note    string `json:"note"`
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request, ownerID string) {
	accountID, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	balance, err := core.ParseAmount(req.Balance)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid balance amount")
		return
	}

	if err := s.balances.SetOverride(r.Context(), ownerID, accountID, balance, sanitizeInput(req.Note), time.Now()); err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "Override set failed",
			log.FieldAccountID, accountID, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "could not set override")
		return
	}
	s.summaries.InvalidateDashboard(ownerID)

	res, err := s.balances.Resolve(r.Context(), ownerID, accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "override set but resolution failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request, ownerID string) {
	accountID, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	if err := s.balances.ClearOverride(r.Context(), ownerID, accountID); err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "Override clear failed",
			log.FieldAccountID, accountID, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "could not clear override")
		return
	}
	s.summaries.InvalidateDashboard(ownerID)

	res, err := s.balances.Resolve(r.Context(), ownerID, accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "override cleared but resolution failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type budgetView struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Amount     core.Money `json:"amount"`
	Period     string     `json:"period"`
	CategoryID *int64     `json:"categoryId,omitempty"`
}

type progressResponse struct {
	Budget   budgetView          `json:"budget"`
	Progress core.BudgetProgress `json:"progress"`
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request, ownerID string) {
	budgetID, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid budget id")
		return
	}

	budget, progress, err := s.budgets.Progress(r.Context(), ownerID, budgetID, time.Now())
	if err != nil {
		if errors.Is(err, core.ErrBudgetNotFound) {
			writeError(w, http.StatusNotFound, "budget not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "Budget progress failed",
			log.FieldBudgetID, budgetID, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "progress computation failed")
		return
	}

	writeJSON(w, http.StatusOK, progressResponse{
		Budget: budgetView{
			ID:         budget.ID,
			Name:       budget.Name,
			Amount:     budget.Amount,
			Period:     string(budget.Period),
			CategoryID: budget.CategoryID,
		},
		Progress: progress,
	})
}

type summaryResponse struct {
	Granularity string              `json:"granularity"`
	Buckets     []core.PeriodTotals `json:"buckets"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, ownerID string) {
	granularity, ok := parseGranularity(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "granularity must be daily, weekly or monthly")
		return
	}
	window, ok := parseWindow(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "window must be between 1 and 120")
		return
	}

	buckets := s.summaries.Summarize(r.Context(), ownerID, granularity, window, time.Now())
	writeJSON(w, http.StatusOK, summaryResponse{
		Granularity: string(granularity),
		Buckets:     buckets,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, ownerID string) {
	data := s.summaries.Dashboard(r.Context(), ownerID, time.Now())
	writeJSON(w, http.StatusOK, data)
}

type createTransactionRequest struct {
	AccountID   int64  `json:"accountId"`
	CategoryID  *int64 `json:"categoryId"`
	BudgetID    *int64 `json:"budgetId"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type createTransactionResponse struct {
	ID int64 `json:"id"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	txnDate, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	t := core.Transaction{
		OwnerID:     ownerID,
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		BudgetID:    req.BudgetID,
		Amount:      amount,
		Type:        core.TransactionType(req.Type),
		Description: sanitizeInput(req.Description),
		Date:        txnDate,
	}
	if err := t.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.transactions.Record(r.Context(), t)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "Transaction create failed",
			log.FieldAccountID, req.AccountID, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "could not record transaction")
		return
	}
	s.summaries.InvalidateDashboard(ownerID)

	writeJSON(w, http.StatusCreated, createTransactionResponse{ID: id})
}
