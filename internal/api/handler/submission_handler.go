package handler

import (
	"net/http"

	"codeduel/internal/app/service"
	"codeduel/internal/common"
	"codeduel/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(ss *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

// RegisterJudgeRoutes mounts the judging endpoints; callers wrap them with
// auth and rate limiting.
func (h *SubmissionHandler) RegisterJudgeRoutes(r chi.Router) {
	r.Post("/run", h.run)
	r.Post("/submit", h.submit)
	r.Post("/submit/async", h.submitAsync)
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listMine)
	r.Get("/{submissionID}", h.get)
}

func (h *SubmissionHandler) run(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.CodeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithAppError(w, err)
		return
	}

	res, err := h.submissionService.Run(r.Context(), userID, req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.CodeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithAppError(w, err)
		return
	}

	sub, err := h.submissionService.Submit(r.Context(), userID, req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, sub)
}

func (h *SubmissionHandler) submitAsync(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.CodeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithAppError(w, err)
		return
	}

	sub, err := h.submissionService.SubmitAsync(r.Context(), userID, req)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, sub)
}

func (h *SubmissionHandler) listMine(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, pageSize := pageParams(r)

	subs, total, err := h.submissionService.ListMySubmissions(r.Context(), userID, r.URL.Query().Get("problemId"), page, pageSize)
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, paginated[model.Submission]{
		Items:    subs,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *SubmissionHandler) get(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := currentUser(w, r)
	if !ok {
		return
	}
	sub, err := h.submissionService.GetSubmission(r.Context(), userID, role, chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}
