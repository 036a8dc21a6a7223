package booking

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/handyhub/booking-payments/internal/auth"
	datamodel "github.com/handyhub/booking-payments/internal/core/datamodel/booking"
	"github.com/handyhub/booking-payments/internal/transport"
	"github.com/handyhub/booking-payments/pkg/logger"
)

type ServiceAPI interface {
	CompleteBooking(ctx context.Context, bookingID, customerID int64) (*CompletionResult, error)
	DeclineBooking(ctx context.Context, bookingID, providerID int64, dto DeclineBookingDTO) (*DeclineResult, error)
	GetBooking(bookingID, userID int64) (*datamodel.Booking, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("CompleteBooking: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookingID, err := h.bookingIDFromURL(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	result, err := h.Service.CompleteBooking(r.Context(), bookingID, user.ID)
	if err != nil {
		h.Logger.Error("CompleteBooking: service error",
			"error", err,
			"booking_id", bookingID,
			"user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CompleteBooking: booking completed",
		"booking_id", result.BookingID,
		"transfer_id", result.TransferID,
		"user_id", user.ID)

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) DeclineBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.Logger.Error("DeclineBooking: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookingID, err := h.bookingIDFromURL(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var dto DeclineBookingDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.Logger.Error("DeclineBooking: invalid request body", "error", err)
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.Service.DeclineBooking(r.Context(), bookingID, user.ID, dto)
	if err != nil {
		h.Logger.Error("DeclineBooking: service error",
			"error", err,
			"booking_id", bookingID,
			"user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("DeclineBooking: booking declined",
		"booking_id", result.BookingID,
		"user_id", user.ID)

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookingID, err := h.bookingIDFromURL(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	b, err := h.Service.GetBooking(bookingID, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) bookingIDFromURL(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
