package dto

type VerifyCodeRequest struct {
	Code string `json:"code"`
}
