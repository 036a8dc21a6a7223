package payout

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/handyhub/booking-payments/internal/auth"
	datamodel "github.com/handyhub/booking-payments/internal/core/datamodel/payout"
	userdm "github.com/handyhub/booking-payments/internal/core/datamodel/user"
	"github.com/handyhub/booking-payments/internal/transport"
	"github.com/handyhub/booking-payments/pkg/logger"
)

type ServiceAPI interface {
	Earnings(providerID int64, limit, offset int) ([]*datamodel.ProviderPayout, int64, error)
}

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Currency string
}

func NewHandler(service ServiceAPI, currency string) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Currency:    currency,
	}
}

func (h *Handler) GetPayouts(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("GetPayouts: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if user.Role != userdm.RoleProvider {
		h.Logger.Warn("GetPayouts: non-provider requested earnings", "user_id", user.ID, "role", user.Role)
		h.WriteError(w, http.StatusForbidden, "only providers can view payouts")
		return
	}

	limit := 20
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	payouts, total, err := h.Service.Earnings(user.ID, limit, offset)
	if err != nil {
		h.Logger.Error("GetPayouts: service error", "error", err, "provider_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	resp := EarningsResponse{
		Payouts:       make([]PayoutDTO, 0, len(payouts)),
		TotalEarnings: total,
		Currency:      h.Currency,
	}
	for _, p := range payouts {
		resp.Payouts = append(resp.Payouts, toDTO(p))
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
