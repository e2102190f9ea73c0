package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"library-borrow-engine/internal/engine"
	"library-borrow-engine/internal/models"
)

type MetricsHandler struct {
	TitleCol  *mongo.Collection
	PatronCol *mongo.Collection
	LoanCol   *mongo.Collection
	Fines     engine.FineCalculator
}

func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	todayStart := time.Now().Truncate(24 * time.Hour)

	// 1. Total titles
	totalTitles, _ := h.TitleCol.CountDocuments(ctx, bson.M{})

	// 2. Active patrons
	activePatrons, _ := h.PatronCol.CountDocuments(ctx, bson.M{
		"active": true,
	})

	// 3. Loans requested today
	loansToday, _ := h.LoanCol.CountDocuments(ctx, bson.M{
		"requested_at": bson.M{
			"$gte": todayStart,
		},
	})

	// 4. Pending approvals
	pendingApprovals, _ := h.LoanCol.CountDocuments(ctx, bson.M{
		"state": models.StateRequested,
	})

	// 5. Overdue count + accruing fine revenue
	now := time.Now()
	overdueFilter := bson.M{
		"state":  models.StateActive,
		"due_at": bson.M{"$lt": now},
	}
	overdueCount, _ := h.LoanCol.CountDocuments(ctx, overdueFilter)

	cursor, err := h.LoanCol.Find(ctx, overdueFilter)
	var loans []models.LoanRecord
	if err == nil {
		_ = cursor.All(ctx, &loans)
	}

	fineRevenue := decimal.Zero
	for _, loan := range loans {
		fineRevenue = fineRevenue.Add(h.Fines.ComputeFine(loan, now))
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"total_titles":      totalTitles,
		"active_patrons":    activePatrons,
		"loans_today":       loansToday,
		"pending_approvals": pendingApprovals,
		"overdue_count":     overdueCount,
		"fine_revenue":      fineRevenue.StringFixed(2),
	})
}
