package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/handyhub/booking-payments/internal/auth"
	"github.com/handyhub/booking-payments/internal/booking"
	userdm "github.com/handyhub/booking-payments/internal/core/datamodel/user"
	"github.com/handyhub/booking-payments/internal/payout"
	"github.com/handyhub/booking-payments/internal/transport/middleware"
	"github.com/handyhub/booking-payments/internal/transport/swagger"
)

// RegisterAllRoutes wires the full HTTP surface. Completion is customer
// only and decline is provider only; ownership is still re-checked in the
// service so role middleware is a gate, not the guarantee.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	bookingHandler *booking.Handler,
	payoutHandler *payout.Handler,
	webhookHandler *payout.WebhookHandler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Processor webhook authenticates via signature, not bearer token.
		if webhookHandler != nil {
			r.Post("/payments/webhook", webhookHandler.HandleProcessorWebhook)
		}

		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", authHandler.Login)
				sr.Post("/refresh", authHandler.RefreshToken)
				sr.Post("/logout", authHandler.Logout)
			})

			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)

				if bookingHandler != nil {
					pr.Route("/bookings", func(br chi.Router) {
						br.Get("/{id}", bookingHandler.GetBooking)

						br.Group(func(cr chi.Router) {
							cr.Use(authHandler.RequireRole(userdm.RoleCustomer))
							cr.Post("/{id}/complete", bookingHandler.CompleteBooking)
						})

						br.Group(func(prv chi.Router) {
							prv.Use(authHandler.RequireRole(userdm.RoleProvider))
							prv.Post("/{id}/decline", bookingHandler.DeclineBooking)
						})
					})
				}

				if payoutHandler != nil {
					pr.Group(func(pp chi.Router) {
						pp.Use(authHandler.RequireRole(userdm.RoleProvider))
						pp.Get("/payouts", payoutHandler.GetPayouts)
					})
				}
			})
		}
	})
}
