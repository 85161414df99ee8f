package recommendation

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/lingua-prep/backend/internal/models"
)

// HandlerStore extends the cache with reads for serving requests.
type HandlerStore interface {
	CacheStore
	CachedRecommendations(userID int64) ([]models.Recommendation, error)
}

type Handler struct {
	engine *Engine
	store  HandlerStore
}

func NewHandler(engine *Engine, store HandlerStore) *Handler {
	return &Handler{engine: engine, store: store}
}

func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

// GetRecommendations serves the cached set when present, otherwise
// generates fresh recommendations and caches them. ?refresh=true forces
// regeneration.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	refresh := r.URL.Query().Get("refresh") == "true"

	if !refresh {
		recs, err := h.store.CachedRecommendations(userID)
		if err != nil {
			log.Printf("WARN: [handler] cached recommendations read failed for user %d: %v", userID, err)
		} else if len(recs) > 0 {
			writeJSON(w, http.StatusOK, recs)
			return
		}
	}

	recs, err := h.engine.GenerateRecommendations(userID)
	if err != nil {
		log.Printf("[handler] GenerateRecommendations error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate recommendations"})
		return
	}

	if err := h.store.SaveRecommendations(userID, recs); err != nil {
		log.Printf("WARN: [handler] cache save failed for user %d: %v", userID, err)
	}

	if recs == nil {
		recs = []models.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
