package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dmitrysorokin/mediapoints/backend/internal/config"
	accsvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/accounts"
	subsvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/submissions"
	verifsvc "github.com/dmitrysorokin/mediapoints/backend/internal/services/verification"
	"github.com/dmitrysorokin/mediapoints/backend/internal/transport/http/handlers"
)

type Dependencies struct {
	AccountService      *accsvc.Service
	VerificationService *verifsvc.Service
	SubmissionService   *subsvc.Service
	Logger              *zap.Logger
	Config              config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	verifyHandler := handlers.NewVerifyHandler(deps.VerificationService)
	accountHandler := handlers.NewAccountHandler(deps.AccountService)
	mediaHandler := handlers.NewMediaHandler(deps.SubmissionService, deps.Config.Media.MaxUploadBytes)

	r.Get("/health", healthHandler.Get)

	r.Route("/api", func(r chi.Router) {
		r.Post("/verify-code", verifyHandler.Handle)
		r.Get("/user/{chatID}", accountHandler.Get)
		r.Post("/send-media", mediaHandler.Send)
	})
}
