package botapp

import (
	"fmt"
	"strings"

	"github.com/dmitrysorokin/mediapoints/backend/internal/domain/enums"
	subsvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/submissions"
)

func verdictShortText(outcome subsvc.Outcome) string {
	if outcome.Decision == enums.DecisionAccept {
		return "Принято"
	}
	return "Отклонено"
}

func verdictAdminText(outcome subsvc.Outcome) string {
	handle := displayHandle(outcome.Account.Handle)
	if outcome.Decision == enums.DecisionAccept {
		return fmt.Sprintf("✅ Медиа от %s принято. +1 балл (итого: %d).", handle, outcome.Account.Points)
	}
	return fmt.Sprintf("❌ Медиа от %s отклонено.", handle)
}

func verdictSubmitterText(outcome subsvc.Outcome) string {
	if outcome.Decision == enums.DecisionAccept {
		return fmt.Sprintf("✅ Ваше медиа принято! +1 балл.\n💎 Баланс: %d", outcome.Account.Points)
	}
	return "❌ Ваше медиа отклонено."
}

func displayHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "пользователя"
	}
	return "@" + handle
}
