package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"library-borrow-engine/internal/constants"
	"library-borrow-engine/internal/engine"
	"library-borrow-engine/internal/models"
	"library-borrow-engine/internal/utils"
)

type LoanHandler struct {
	Controller  *engine.LifecycleController
	Fines       engine.FineCalculator
	LoanCol     *mongo.Collection
	AuditLogger utils.Logger
}

type RequestLoanRequest struct {
	PatronID string `json:"patron_id"`
	TitleID  string `json:"title_id"`
	// Immediate issues the loan on the spot (self-service kiosk); otherwise
	// the record waits in REQUESTED for librarian approval.
	Immediate bool `json:"immediate"`
}

// POST /loans/request
func (h *LoanHandler) RequestLoan(w http.ResponseWriter, r *http.Request) {
	var req RequestLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, "Invalid input", http.StatusBadRequest)
		return
	}

	patronID, err := primitive.ObjectIDFromHex(req.PatronID)
	if err != nil {
		utils.JSONError(w, "Invalid patron ID", http.StatusBadRequest)
		return
	}
	titleID, err := primitive.ObjectIDFromHex(req.TitleID)
	if err != nil {
		utils.JSONError(w, "Invalid title ID", http.StatusBadRequest)
		return
	}

	mode := engine.IssueOnApproval
	if req.Immediate {
		mode = engine.IssueImmediately
	}

	loan, alternates, err := h.Controller.RequestLoan(r.Context(), patronID, titleID, mode)
	if errors.Is(err, engine.ErrTitleUnavailable) {
		utils.AppendToNotifyLog(r.Context(), req.PatronID, req.TitleID)
		h.AuditLogger.Log(context.Background(), models.IntentEntity, constants.RecordIntent, map[string]string{
			"patron_id": req.PatronID,
			"title_id":  req.TitleID,
		})
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"error":      err.Error(),
			"alternates": alternates,
		})
		return
	}
	if err != nil {
		utils.JSONError(w, err.Error(), engine.HTTPStatus(err))
		return
	}

	h.AuditLogger.Log(context.Background(), models.LoanEntity, constants.RequestLoan, loan)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(loan)
}

// POST /loans/{id}/approve
func (h *LoanHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	loan, err := h.Controller.ApproveLoan(r.Context(), loanID)
	if err != nil {
		utils.JSONError(w, err.Error(), engine.HTTPStatus(err))
		return
	}

	h.AuditLogger.Log(context.Background(), models.LoanEntity, constants.ApproveLoan, loan)
	json.NewEncoder(w).Encode(loan)
}

// POST /loans/{id}/reject
func (h *LoanHandler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	loan, err := h.Controller.RejectLoan(r.Context(), loanID)
	if err != nil {
		utils.JSONError(w, err.Error(), engine.HTTPStatus(err))
		return
	}

	h.AuditLogger.Log(context.Background(), models.LoanEntity, constants.RejectLoan, loan)
	json.NewEncoder(w).Encode(loan)
}

// POST /loans/{id}/return
func (h *LoanHandler) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	loan, err := h.Controller.ReturnLoan(r.Context(), loanID)
	if err != nil {
		utils.JSONError(w, err.Error(), engine.HTTPStatus(err))
		return
	}

	h.AuditLogger.Log(context.Background(), models.LoanEntity, constants.ReturnLoan, loan)
	json.NewEncoder(w).Encode(loan)
}

// GET /loans?state=ACTIVE
func (h *LoanHandler) GetLoans(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if state := r.URL.Query().Get("state"); state != "" {
		if !models.IsStoredLoanState(state) {
			utils.JSONError(w, "Invalid loan state", http.StatusBadRequest)
			return
		}
		filter["state"] = state
	}

	cursor, err := h.LoanCol.Find(r.Context(), filter)
	if err != nil {
		utils.JSONError(w, "Failed to fetch loans", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(r.Context())

	var loans []models.LoanRecord
	if err = cursor.All(r.Context(), &loans); err != nil {
		utils.JSONError(w, "Error decoding loans", http.StatusInternalServerError)
		return
	}

	if len(loans) == 0 {
		utils.JSONError(w, "No loans found", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(loans)
}

// GET /loans/{id}/fine — live accrual preview before return.
func (h *LoanHandler) GetFine(w http.ResponseWriter, r *http.Request) {
	loanID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, "Invalid loan ID", http.StatusBadRequest)
		return
	}

	var loan models.LoanRecord
	if err := h.LoanCol.FindOne(r.Context(), bson.M{"_id": loanID}).Decode(&loan); err != nil {
		utils.JSONError(w, "Loan not found", http.StatusNotFound)
		return
	}

	now := time.Now()
	fine := h.Fines.ComputeFine(loan, now)

	json.NewEncoder(w).Encode(map[string]any{
		"loan_id": loan.ID,
		"state":   loan.StateAt(now),
		"fine":    fine.StringFixed(2),
		"as_of":   now.Format(time.RFC3339),
	})
}

// GET /loans/overdue
func (h *LoanHandler) GetOverdueLoans(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	cursor, err := h.LoanCol.Find(r.Context(), bson.M{
		"state":  models.StateActive,
		"due_at": bson.M{"$lt": now},
	})
	if err != nil {
		utils.JSONError(w, "Failed to fetch overdue loans", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(r.Context())

	var loans []models.LoanRecord
	if err = cursor.All(r.Context(), &loans); err != nil {
		utils.JSONError(w, "Error decoding loans", http.StatusInternalServerError)
		return
	}

	type overdueLoan struct {
		models.LoanRecord
		AccruedFine string `json:"accrued_fine"`
	}
	out := make([]overdueLoan, 0, len(loans))
	for _, loan := range loans {
		out = append(out, overdueLoan{
			LoanRecord:  loan,
			AccruedFine: h.Fines.ComputeFine(loan, now).StringFixed(2),
		})
	}

	json.NewEncoder(w).Encode(out)
}
