package handler

import (
	"net/http"

	"codeduel/internal/app/service"
	"codeduel/internal/common"
)

type LanguageHandler struct {
	languageService *service.LanguageService
}

func NewLanguageHandler(ls *service.LanguageService) *LanguageHandler {
	return &LanguageHandler{languageService: ls}
}

func (h *LanguageHandler) List(w http.ResponseWriter, r *http.Request) {
	langs, err := h.languageService.List(r.Context())
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, langs)
}
