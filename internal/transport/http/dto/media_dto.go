package dto

type SendMediaResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
