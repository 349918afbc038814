package handler

import (
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// UserHandler exposes the current-user endpoints.
type UserHandler struct {
	userService service.UserService
	logger      zerolog.Logger
}

func NewUserHandler(userService service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// RegisterRoutes mounts the user routes.
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/user", authMw(http.HandlerFunc(h.getUser)))
	mux.Handle("/user/transactions", authMw(http.HandlerFunc(h.listTransactions)))
}

// getUser returns the current user, provisioning the record on first sight.
func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	email, _ := r.Context().Value(middleware.EmailContextKey).(string)

	user, err := h.userService.GetOrCreateUser(r.Context(), userID, email)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load user")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserDTO(user))
}

func (h *UserHandler) listTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	txs, err := h.userService.ListTransactions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]dto.TransactionDTO, 0, len(txs))
	for i := range txs {
		out = append(out, dto.NewTransactionDTO(&txs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
