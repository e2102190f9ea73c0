package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"library-borrow-engine/internal/engine"
	"library-borrow-engine/internal/handlers"
)

func countResponse(n int32) bson.D {
	return mtest.CreateCursorResponse(0, "test.loans", mtest.FirstBatch,
		bson.D{{Key: "_id", Value: int32(1)}, {Key: "n", Value: n}})
}

func TestMetricsHandler_GetMetrics(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	if mt.Client != nil {
		defer mt.Client.Disconnect(context.Background())
	}

	mt.Run("overdue query failure still yields a report", func(mt *mtest.T) {
		handler := handlers.MetricsHandler{
			TitleCol:  mt.Coll,
			PatronCol: mt.Coll,
			LoanCol:   mt.Coll,
			Fines:     engine.NewFineCalculator(0.25),
		}

		mt.AddMockResponses(
			countResponse(10), // total titles
			countResponse(4),  // active patrons
			countResponse(2),  // loans today
			countResponse(1),  // pending approvals
			countResponse(3),  // overdue count
			mtest.CreateCommandErrorResponse(mtest.CommandError{
				Code:    11600,
				Message: "interrupted at shutdown",
				Name:    "InterruptedAtShutdown",
			}),
		)

		router := mux.NewRouter()
		router.HandleFunc("/admin/metrics", handler.GetMetrics).Methods("GET")

		req := httptest.NewRequest(http.MethodGet, "/admin/metrics", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		res := w.Result()
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("expected status OK, got %v", res.Status)
		}

		var out struct {
			FineRevenue string `json:"fine_revenue"`
		}
		if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if out.FineRevenue != "0.00" {
			t.Errorf("expected zero fine revenue when loans cannot be read, got %s", out.FineRevenue)
		}
	})
}
