package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"library-borrow-engine/internal/constants"
	"library-borrow-engine/internal/engine"
	"library-borrow-engine/internal/handlers"
	"library-borrow-engine/internal/models"
	"library-borrow-engine/internal/utils"
)

func newTestController(mt *mtest.T) *engine.LifecycleController {
	c := &engine.LifecycleController{
		TitleCol:  mt.Coll,
		PatronCol: mt.Coll,
		LoanCol:   mt.Coll,
		Advisor: &engine.ReservationAdvisor{
			TitleCol:  mt.Coll,
			IntentCol: mt.Coll,
		},
		Eligibility: engine.EligibilityEvaluator{MaxActiveLoans: 3},
		Fines:       engine.NewFineCalculator(0.25),
	}
	c.Config.LoanPeriodDays = 14
	return c
}

func TestLoanHandler_RequestLoan(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("invalid body", func(mt *mtest.T) {
		handler := handlers.LoanHandler{Controller: newTestController(mt), LoanCol: mt.Coll}

		router := mux.NewRouter()
		router.HandleFunc("/loans/request", handler.RequestLoan).Methods("POST")

		req := httptest.NewRequest(http.MethodPost, "/loans/request", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusBadRequest {
			t.Errorf("expected status BadRequest, got %v", w.Result().Status)
		}
	})

	mt.Run("invalid patron id", func(mt *mtest.T) {
		handler := handlers.LoanHandler{Controller: newTestController(mt), LoanCol: mt.Coll}

		router := mux.NewRouter()
		router.HandleFunc("/loans/request", handler.RequestLoan).Methods("POST")

		body, _ := json.Marshal(handlers.RequestLoanRequest{
			PatronID: "not-an-object-id",
			TitleID:  primitive.NewObjectID().Hex(),
		})
		req := httptest.NewRequest(http.MethodPost, "/loans/request", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusBadRequest {
			t.Errorf("expected status BadRequest, got %v", w.Result().Status)
		}
	})

	mt.Run("unavailable title returns alternates and logs the intent", func(mt *mtest.T) {
		handler := handlers.LoanHandler{
			Controller:  newTestController(mt),
			LoanCol:     mt.Coll,
			AuditLogger: utils.Logger{Collection: mt.Coll},
		}

		titleID := primitive.NewObjectID()
		substituteID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.titles", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: titleID},
				{Key: "available", Value: 0},
				{Key: "categories", Value: bson.A{"sci-fi"}},
			}),
			mtest.CreateCursorResponse(0, "test.patrons", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "card_number", Value: "card-1"},
				{Key: "active", Value: true},
			}),
			mtest.CreateCursorResponse(0, "test.loans", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: int32(1)}, {Key: "n", Value: int32(0)},
			}),
			mtest.CreateCursorResponse(0, "test.loans", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: int32(1)}, {Key: "n", Value: int32(0)},
			}),
			mtest.CreateCursorResponse(0, "test.titles", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: titleID},
				{Key: "available", Value: 0},
				{Key: "categories", Value: bson.A{"sci-fi"}},
			}),
			mtest.CreateCursorResponse(0, "test.titles", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: substituteID},
				{Key: "available", Value: 2},
				{Key: "categories", Value: bson.A{"sci-fi"}},
			}),
			mtest.CreateSuccessResponse(), // intent insert
			mtest.CreateSuccessResponse(), // audit insert
		)

		router := mux.NewRouter()
		router.HandleFunc("/loans/request", handler.RequestLoan).Methods("POST")

		body, _ := json.Marshal(handlers.RequestLoanRequest{
			PatronID: primitive.NewObjectID().Hex(),
			TitleID:  titleID.Hex(),
		})
		req := httptest.NewRequest(http.MethodPost, "/loans/request", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		res := w.Result()
		defer res.Body.Close()
		if res.StatusCode != http.StatusConflict {
			t.Fatalf("expected status Conflict, got %v", res.Status)
		}

		var out struct {
			Alternates []models.Title `json:"alternates"`
		}
		if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(out.Alternates) != 1 || out.Alternates[0].ID != substituteID {
			t.Errorf("expected the substitute title, got %+v", out.Alternates)
		}

		var actions []string
		for _, evt := range mt.GetAllStartedEvents() {
			if evt.CommandName != "insert" {
				continue
			}
			elem, err := evt.Command.Lookup("documents").Array().IndexErr(0)
			if err != nil {
				t.Fatalf("insert carried no documents: %v", err)
			}
			if action, ok := elem.Value().Document().Lookup("action").StringValueOK(); ok {
				actions = append(actions, action)
			}
		}
		if len(actions) != 1 || actions[0] != constants.RecordIntent {
			t.Errorf("expected a single RECORD_INTENT audit entry, got %v", actions)
		}
	})

	mt.Run("unknown title maps to 404", func(mt *mtest.T) {
		handler := handlers.LoanHandler{Controller: newTestController(mt), LoanCol: mt.Coll}

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.titles", mtest.FirstBatch),
		)

		router := mux.NewRouter()
		router.HandleFunc("/loans/request", handler.RequestLoan).Methods("POST")

		body, _ := json.Marshal(handlers.RequestLoanRequest{
			PatronID: primitive.NewObjectID().Hex(),
			TitleID:  primitive.NewObjectID().Hex(),
		})
		req := httptest.NewRequest(http.MethodPost, "/loans/request", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusNotFound {
			t.Errorf("expected status NotFound, got %v", w.Result().Status)
		}
	})
}

func TestLoanHandler_RejectLoan(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("rejecting an active loan maps to 409", func(mt *mtest.T) {
		handler := handlers.LoanHandler{Controller: newTestController(mt), LoanCol: mt.Coll}

		loanID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.loans", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: loanID},
				{Key: "state", Value: models.StateActive},
			}),
		)

		router := mux.NewRouter()
		router.HandleFunc("/loans/{id}/reject", handler.RejectLoan).Methods("POST")

		req := httptest.NewRequest(http.MethodPost, "/loans/"+loanID.Hex()+"/reject", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusConflict {
			t.Errorf("expected status Conflict, got %v", w.Result().Status)
		}
	})
}

func TestLoanHandler_GetLoans(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("unknown state filter is rejected", func(mt *mtest.T) {
		handler := handlers.LoanHandler{LoanCol: mt.Coll}

		router := mux.NewRouter()
		router.HandleFunc("/loans", handler.GetLoans).Methods("GET")

		req := httptest.NewRequest(http.MethodGet, "/loans?state=OVERDUE", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusBadRequest {
			t.Errorf("expected status BadRequest, got %v", w.Result().Status)
		}
	})

	mt.Run("filters by stored state", func(mt *mtest.T) {
		handler := handlers.LoanHandler{LoanCol: mt.Coll}

		loanID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.loans", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: loanID},
				{Key: "state", Value: models.StateActive},
			}),
		)

		router := mux.NewRouter()
		router.HandleFunc("/loans", handler.GetLoans).Methods("GET")

		req := httptest.NewRequest(http.MethodGet, "/loans?state=ACTIVE", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		res := w.Result()
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("expected status OK, got %v", res.Status)
		}

		var loans []models.LoanRecord
		if err := json.NewDecoder(res.Body).Decode(&loans); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(loans) != 1 || loans[0].ID != loanID {
			t.Errorf("expected the single active loan, got %+v", loans)
		}
	})

	mt.Run("no loans found", func(mt *mtest.T) {
		handler := handlers.LoanHandler{LoanCol: mt.Coll}

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.loans", mtest.FirstBatch),
		)

		router := mux.NewRouter()
		router.HandleFunc("/loans", handler.GetLoans).Methods("GET")

		req := httptest.NewRequest(http.MethodGet, "/loans", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusNotFound {
			t.Errorf("expected status NotFound, got %v", w.Result().Status)
		}
	})
}

func TestLoanHandler_GetFine(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("loan not found", func(mt *mtest.T) {
		handler := handlers.LoanHandler{
			Fines:   engine.NewFineCalculator(0.25),
			LoanCol: mt.Coll,
		}

		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.loans", mtest.FirstBatch),
		)

		router := mux.NewRouter()
		router.HandleFunc("/loans/{id}/fine", handler.GetFine).Methods("GET")

		req := httptest.NewRequest(http.MethodGet, "/loans/"+primitive.NewObjectID().Hex()+"/fine", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusNotFound {
			t.Errorf("expected status NotFound, got %v", w.Result().Status)
		}
	})

	mt.Run("returned loan reports the frozen fine", func(mt *mtest.T) {
		handler := handlers.LoanHandler{
			Fines:   engine.NewFineCalculator(0.25),
			LoanCol: mt.Coll,
		}

		loanID := primitive.NewObjectID()
		issued := time.Now().AddDate(0, 0, -20)
		returned := issued.AddDate(0, 0, 16)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.loans", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: loanID},
				{Key: "issued_at", Value: issued},
				{Key: "due_at", Value: issued.AddDate(0, 0, 14)},
				{Key: "returned_at", Value: returned},
				{Key: "state", Value: models.StateReturned},
				{Key: "fine_at_close", Value: "12.00"},
			}),
		)

		router := mux.NewRouter()
		router.HandleFunc("/loans/{id}/fine", handler.GetFine).Methods("GET")

		req := httptest.NewRequest(http.MethodGet, "/loans/"+loanID.Hex()+"/fine", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		res := w.Result()
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("expected status OK, got %v", res.Status)
		}

		var out struct {
			Fine  string           `json:"fine"`
			State models.LoanState `json:"state"`
		}
		if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if out.Fine != "12.00" {
			t.Errorf("expected frozen fine 12.00, got %s", out.Fine)
		}
		if out.State != models.StateReturned {
			t.Errorf("expected state RETURNED, got %s", out.State)
		}
	})
}
