package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"library-borrow-engine/internal/constants"
	"library-borrow-engine/internal/models"
	"library-borrow-engine/internal/utils"
)

type TitleHandler struct {
	Collection  *mongo.Collection
	AuditLogger utils.Logger
}

func NewTitleHandler(coll *mongo.Collection, logger utils.Logger) *TitleHandler {
	return &TitleHandler{Collection: coll, AuditLogger: logger}
}

// POST /titles
func (h *TitleHandler) AddTitle(w http.ResponseWriter, r *http.Request) {
	var title models.Title
	if err := json.NewDecoder(r.Body).Decode(&title); err != nil {
		utils.JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if title.Name == "" {
		utils.JSONError(w, "Title name is required", http.StatusBadRequest)
		return
	}
	if title.Available < 0 {
		utils.JSONError(w, "Available count cannot be negative", http.StatusBadRequest)
		return
	}

	title.ID = primitive.NewObjectID()
	title.CreatedAt = time.Now()
	title.UpdatedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := h.Collection.InsertOne(ctx, title)
	if err != nil {
		utils.JSONError(w, "Insert failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.AuditLogger.Log(ctx, models.TitleEntity, constants.Create, title)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(title)
}

// GET /titles?category=xxx
func (h *TitleHandler) GetTitles(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	filter := bson.M{}
	if category != "" {
		filter["categories"] = category
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cursor, err := h.Collection.Find(ctx, filter)
	if err != nil {
		utils.JSONError(w, "Failed to fetch titles", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var titles []models.Title
	if err = cursor.All(ctx, &titles); err != nil {
		utils.JSONError(w, "Error decoding titles", http.StatusInternalServerError)
		return
	}

	if len(titles) == 0 {
		utils.JSONError(w, "No titles found", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(titles)
}

// GET /titles/{id}
func (h *TitleHandler) GetTitle(w http.ResponseWriter, r *http.Request) {
	titleID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, "Invalid title ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var title models.Title
	if err := h.Collection.FindOne(ctx, bson.M{"_id": titleID}).Decode(&title); err != nil {
		utils.JSONError(w, "Title not found", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(title)
}

// PUT /titles/{id}
func (h *TitleHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	titleID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, "Invalid title ID", http.StatusBadRequest)
		return
	}

	var updateData map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		utils.JSONError(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	if len(updateData) == 0 {
		utils.JSONError(w, "No update fields provided", http.StatusBadRequest)
		return
	}

	if availVal, ok := updateData["available"]; ok {
		avail, ok := availVal.(float64)
		if !ok || avail < 0 {
			utils.JSONError(w, "Invalid available count", http.StatusBadRequest)
			return
		}
	}

	updateData["updated_at"] = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.Collection.UpdateByID(ctx, titleID, bson.M{"$set": updateData})
	if err != nil {
		utils.JSONError(w, "Update failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		utils.JSONError(w, "Title not found", http.StatusNotFound)
		return
	}

	h.AuditLogger.Log(ctx, models.TitleEntity, constants.Update, updateData)

	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":       "Title updated successfully",
		"modifiedCount": result.ModifiedCount,
	})
}

// DELETE /titles/{id}
func (h *TitleHandler) DeleteTitle(w http.ResponseWriter, r *http.Request) {
	titleID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, "Invalid title ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.Collection.DeleteOne(ctx, bson.M{"_id": titleID})
	if err != nil {
		utils.JSONError(w, "Delete failed", http.StatusInternalServerError)
		return
	}
	if result.DeletedCount == 0 {
		utils.JSONError(w, "Title not found", http.StatusNotFound)
		return
	}

	h.AuditLogger.Log(ctx, models.TitleEntity, constants.Delete, titleID.Hex())

	w.WriteHeader(http.StatusNoContent)
}

// GET /titles/search?q=xxx&available=true
func (h *TitleHandler) SearchTitles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	availableOnly := r.URL.Query().Get("available")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{}
	if query != "" {
		filter["$text"] = bson.M{"$search": query}
	}
	if availableOnly == "true" {
		filter["available"] = bson.M{"$gt": 0}
	}

	cursor, err := h.Collection.Find(ctx, filter)
	if err != nil {
		utils.JSONError(w, "Failed to search titles: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer cursor.Close(ctx)

	var results []models.Title
	if err = cursor.All(ctx, &results); err != nil {
		utils.JSONError(w, "Failed to decode titles", http.StatusInternalServerError)
		return
	}

	if len(results) == 0 {
		utils.JSONError(w, "No record found", http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(results)
}
