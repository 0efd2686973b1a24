package handler

import (
	"net/http"
	"strconv"

	"codeduel/internal/api/middleware"
	"codeduel/internal/common"
)

type paginated[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func pageParams(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// currentUser writes a 401 and reports false when the request is anonymous.
func currentUser(w http.ResponseWriter, r *http.Request) (userID, role string, ok bool) {
	userID, ok = middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "missing user context")
		return "", "", false
	}
	role, _ = middleware.GetUserRoleFromContext(r.Context())
	return userID, role, true
}
