package handlers

import (
	"net/http"
	"time"

	"github.com/dmitrysorokin/mediapoints/backend/internal/transport/http/dto"
	httperrors "github.com/dmitrysorokin/mediapoints/backend/internal/transport/http/errors"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Get(w http.ResponseWriter, _ *http.Request) {
	httperrors.Write(w, http.StatusOK, dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
