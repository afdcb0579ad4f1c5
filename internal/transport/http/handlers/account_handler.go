package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrysorokin/mediapoints/backend/internal/services/accounts"
	"github.com/dmitrysorokin/mediapoints/backend/internal/transport/http/dto"
	httperrors "github.com/dmitrysorokin/mediapoints/backend/internal/transport/http/errors"
)

type AccountHandler struct {
	service *accounts.Service
}

func NewAccountHandler(service *accounts.Service) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		httperrors.Fail(w, http.StatusInternalServerError, "Сервис недоступен")
		return
	}

	identity := chi.URLParam(r, "chatID")

	account, err := h.service.GetByIdentity(r.Context(), identity)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrValidation):
			httperrors.Fail(w, http.StatusBadRequest, "ID пользователя не указан")
		case errors.Is(err, accounts.ErrAccountNotFound):
			httperrors.Fail(w, http.StatusNotFound, "Пользователь не найден")
		default:
			httperrors.Fail(w, http.StatusInternalServerError, "Ошибка сервера")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AccountResponse{
		Success: true,
		User:    accountPayload(account),
	})
}
