package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"library-borrow-engine/internal/constants"
	"library-borrow-engine/internal/models"
	"library-borrow-engine/internal/utils"
)

type PatronHandler struct {
	Collection  *mongo.Collection
	AuditLogger utils.Logger
}

func NewPatronHandler(coll *mongo.Collection, logger utils.Logger) *PatronHandler {
	return &PatronHandler{Collection: coll, AuditLogger: logger}
}

// POST /patrons — registration issues the membership card number.
func (h *PatronHandler) RegisterPatron(w http.ResponseWriter, r *http.Request) {
	var patron models.Patron
	if err := json.NewDecoder(r.Body).Decode(&patron); err != nil {
		utils.JSONError(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	if patron.Name == "" {
		utils.JSONError(w, "Patron name is required", http.StatusBadRequest)
		return
	}

	patron.ID = primitive.NewObjectID()
	patron.CardNumber = uuid.NewString()
	patron.Active = true
	patron.CreatedAt = time.Now()
	patron.UpdatedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := h.Collection.InsertOne(ctx, patron)
	if err != nil {
		utils.JSONError(w, "Insert failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.AuditLogger.Log(ctx, models.PatronEntity, constants.Create, patron)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(patron)
}

// PUT /patrons/{id}
func (h *PatronHandler) UpdatePatron(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	patronID, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		utils.JSONError(w, "Invalid patron ID", http.StatusBadRequest)
		return
	}

	var updateData bson.M
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		utils.JSONError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	// Card numbers are issued at registration, never edited.
	delete(updateData, "card_number")
	updateData["updated_at"] = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := h.Collection.UpdateByID(ctx, patronID, bson.M{"$set": updateData})
	if err != nil {
		utils.JSONError(w, "Update failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		utils.JSONError(w, "Patron not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	h.AuditLogger.Log(ctx, models.PatronEntity, constants.Update, updateData)
	json.NewEncoder(w).Encode(map[string]string{"message": "Patron updated"})
}

// PATCH /patrons/{id}/deactivate — a deactivated patron no longer holds a
// usable credential, so new loans stop at the eligibility check.
func (h *PatronHandler) DeactivatePatron(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	patronID, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		utils.JSONError(w, "Invalid patron ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := h.Collection.UpdateByID(ctx, patronID, bson.M{"$set": bson.M{
		"active":     false,
		"updated_at": time.Now(),
	}})
	if err != nil {
		utils.JSONError(w, "Deactivate failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if res.MatchedCount == 0 {
		utils.JSONError(w, "Patron not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	h.AuditLogger.Log(ctx, models.PatronEntity, constants.Deactivate, idStr)
	json.NewEncoder(w).Encode(map[string]string{"message": "Patron deactivated"})
}
