package dto

// AccountPayload keeps the field names the mobile client already binds to.
type AccountPayload struct {
	ID       int64  `json:"id"`
	Identity string `json:"telegram_chat_id"`
	Handle   string `json:"telegram_username"`
	Points   int64  `json:"points"`
}

type AccountResponse struct {
	Success bool           `json:"success"`
	User    AccountPayload `json:"user"`
}
