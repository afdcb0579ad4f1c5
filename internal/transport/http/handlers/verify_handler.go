package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrysorokin/mediapoints/backend/internal/services/accounts"
	verifsvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/verification"
	"github.com/dmitrysorokin/mediapoints/backend/internal/transport/http/dto"
	httperrors "github.com/dmitrysorokin/mediapoints/backend/internal/transport/http/errors"
)

type VerifyHandler struct {
	service *verifsvc.Service
}

func NewVerifyHandler(service *verifsvc.Service) *VerifyHandler {
	return &VerifyHandler{service: service}
}

func (h *VerifyHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		httperrors.Fail(w, http.StatusInternalServerError, "Сервис недоступен")
		return
	}

	var req dto.VerifyCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		httperrors.Fail(w, http.StatusBadRequest, "Код не указан")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		httperrors.Fail(w, http.StatusBadRequest, "Код не указан")
		return
	}

	account, err := h.service.Redeem(r.Context(), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, verifsvc.ErrValidation), errors.Is(err, verifsvc.ErrCodeInvalid):
			httperrors.Fail(w, http.StatusBadRequest, "Неверный или просроченный код")
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

func accountPayload(account accounts.Account) dto.AccountPayload {
	return dto.AccountPayload{
		ID:       account.ID,
		Identity: account.Identity,
		Handle:   account.Handle,
		Points:   account.Points,
	}
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}
