package sessions

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/lingua-prep/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// getUserID extracts the authenticated user ID from the request context.
func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.StartSessionRequest
	if r.Body != nil {
		// An empty body is fine: the default question count applies.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if req.QuestionCount > 50 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "question_count must be at most 50"})
		return
	}

	session, err := h.service.StartSession(r.Context(), userID, req.QuestionCount)
	if err != nil {
		if strings.Contains(err.Error(), "no learning items") {
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "No learning items available"})
			return
		}
		log.Printf("[handler] StartSession error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to start session"})
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid session ID"})
		return
	}

	session, err := h.service.GetSession(userID, id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Session not found"})
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid session ID"})
		return
	}

	var req models.CompleteSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if len(req.Outcomes) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "outcomes are required"})
		return
	}

	resp, err := h.service.CompleteSession(userID, id, req.Outcomes)
	if err != nil {
		if strings.Contains(err.Error(), "already completed") {
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Session is already completed"})
			return
		}
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "does not belong") {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Session not found"})
			return
		}
		log.Printf("[handler] CompleteSession error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to complete session"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
