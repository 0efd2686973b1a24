package handler

import (
	"net/http"

	"codeduel/internal/app/service"
	"codeduel/internal/common"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	streakService *service.StreakService
}

func NewUserHandler(ss *service.StreakService) *UserHandler {
	return &UserHandler{streakService: ss}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me/streak", h.streak)
	r.Get("/me/activity", h.activity)
}

func (h *UserHandler) streak(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	view, err := h.streakService.GetStreak(r.Context(), userID)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

func (h *UserHandler) activity(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	days, err := h.streakService.Activity(r.Context(), userID)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{"days": days})
}
