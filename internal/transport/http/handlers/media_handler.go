package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrysorokin/mediapoints/backend/internal/domain/enums"
	subsvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/submissions"
	"github.com/dmitrysorokin/mediapoints/backend/internal/transport/http/dto"
	httperrors "github.com/dmitrysorokin/mediapoints/backend/internal/transport/http/errors"
)

type MediaHandler struct {
	service        *subsvc.Service
	maxUploadBytes int64
}

func NewMediaHandler(service *subsvc.Service, maxUploadBytes int64) *MediaHandler {
	return &MediaHandler{service: service, maxUploadBytes: maxUploadBytes}
}

func (h *MediaHandler) Send(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		httperrors.Fail(w, http.StatusInternalServerError, "Сервис недоступен")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httperrors.Fail(w, http.StatusRequestEntityTooLarge, "Файл слишком большой")
			return
		}
		httperrors.Fail(w, http.StatusBadRequest, "Файл или ID пользователя не указаны")
		return
	}

	accountID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("userId")), 10, 64)
	if err != nil || accountID <= 0 {
		httperrors.Fail(w, http.StatusBadRequest, "Файл или ID пользователя не указаны")
		return
	}

	kind, ok := enums.ParseMediaKind(r.FormValue("mediaType"))
	if !ok {
		httperrors.Fail(w, http.StatusBadRequest, "Неподдерживаемый тип медиа")
		return
	}

	file, header, err := r.FormFile("media")
	if err != nil {
		httperrors.Fail(w, http.StatusBadRequest, "Файл или ID пользователя не указаны")
		return
	}
	defer file.Close()

	if header == nil || header.Size <= 0 {
		httperrors.Fail(w, http.StatusBadRequest, "Файл или ID пользователя не указаны")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = h.service.Enqueue(r.Context(), subsvc.EnqueueParams{
		AccountID:   accountID,
		Kind:        kind,
		FileName:    header.Filename,
		ContentType: contentType,
		Body:        file,
		Size:        header.Size,
	})
	if err != nil {
		handleSubmissionError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SendMediaResponse{
		Success: true,
		Message: "Медиа отправлено!",
	})
}

func handleSubmissionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, subsvc.ErrPayloadTooLarge):
		httperrors.Fail(w, http.StatusRequestEntityTooLarge, "Файл слишком большой")
	case errors.Is(err, subsvc.ErrAccountNotFound):
		httperrors.Fail(w, http.StatusNotFound, "Пользователь не найден")
	case errors.Is(err, subsvc.ErrInvalidKind), errors.Is(err, subsvc.ErrValidation):
		httperrors.Fail(w, http.StatusBadRequest, "Файл или ID пользователя не указаны")
	case errors.Is(err, subsvc.ErrDelivery):
		httperrors.Fail(w, http.StatusInternalServerError, "Ошибка отправки")
	default:
		httperrors.Fail(w, http.StatusInternalServerError, "Ошибка сервера")
	}
}
