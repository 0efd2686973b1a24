package handler

import (
	"net/http"

	"codeduel/internal/api/middleware"
	"codeduel/internal/app/service"
	"codeduel/internal/common"
	"codeduel/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ContestHandler struct {
	contestService *service.ContestService
}

func NewContestHandler(cs *service.ContestService) *ContestHandler {
	return &ContestHandler{contestService: cs}
}

// RegisterRoutes mounts the contest endpoints. judge wraps run and submit,
// typically with a rate limiter.
func (h *ContestHandler) RegisterRoutes(r chi.Router, judge func(http.Handler) http.Handler) {
	r.Get("/", h.list)
	r.Get("/{contestID}", h.get)
	r.Get("/{contestID}/leaderboard", h.leaderboard)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Get("/{contestID}/submissions/me", h.mySubmissions)
		authed.With(judge).Post("/{contestID}/run", h.run)
		authed.With(judge).Post("/{contestID}/submit", h.submit)
		authed.With(middleware.AdminOnly).Post("/", h.create)
	})
}

func (h *ContestHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.CreateContestRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	contest, err := h.contestService.CreateContest(r.Context(), userID, req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, contest)
}

func (h *ContestHandler) list(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	status := model.ContestStatus(r.URL.Query().Get("status"))

	contests, total, err := h.contestService.ListContests(r.Context(), status, page, pageSize)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, paginated[service.ContestView]{
		Items:    contests,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *ContestHandler) get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.contestService.GetContest(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, detail)
}

func (h *ContestHandler) run(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.CodeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	res, err := h.contestService.Run(r.Context(), userID, chi.URLParam(r, "contestID"), req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *ContestHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.CodeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	sub, err := h.contestService.Submit(r.Context(), userID, chi.URLParam(r, "contestID"), req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, sub)
}

func (h *ContestHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.contestService.Leaderboard(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, board)
}

func (h *ContestHandler) mySubmissions(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	subs, err := h.contestService.MySubmissions(r.Context(), userID, chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}
