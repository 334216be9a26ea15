package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dejobratic/orderflow/internal/orders/app"
	"github.com/dejobratic/orderflow/internal/orders/app/commands"
	"github.com/dejobratic/orderflow/internal/orders/app/queries"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

const (
	idempotencyKeyHeader      = "Idempotency-Key"
	idempotentReplayedHeader  = "Idempotent-Replayed"
	maxRequestBodyBytes int64 = 1 << 20
)

// Handler exposes HTTP endpoints for order operations.
type Handler struct {
	service *app.Service
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *app.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register binds the order handlers to the provided ServeMux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/orders/{id}", h.getOrder)
	mux.HandleFunc("POST /v1/orders/{id}/status", h.transitionStatus)
	mux.HandleFunc("POST /v1/orders/{id}/payment-confirmation", h.confirmPayment)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, details)
}

func (h *Handler) transitionStatus(w http.ResponseWriter, r *http.Request) {
	var payload app.TransitionStatusInput
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	order, err := h.service.TransitionStatus(r.Context(), r.PathValue("id"), payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := r.PathValue("id")

	idemKey := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if idemKey == "" {
		writeError(w, http.StatusBadRequest, "Idempotency-Key header required")
		return
	}

	stored, err := h.service.GetIdempotentResponse(ctx, idemKey)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if stored != nil {
		writeStoredResponse(w, stored, orderID)
		return
	}

	var payload app.ConfirmPaymentInput
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	reserved, err := h.service.ReserveIdempotencyKey(ctx, idemKey, orderID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !reserved {
		// Another request claimed the key between the lookup and the reservation.
		stored, err := h.service.GetIdempotentResponse(ctx, idemKey)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		if stored == nil {
			stored = &ports.StoredResponse{OrderID: orderID}
		}
		writeStoredResponse(w, stored, orderID)
		return
	}

	event, err := h.service.ConfirmPayment(ctx, orderID, payload)
	if err != nil {
		if releaseErr := h.service.ReleaseIdempotencyKey(context.WithoutCancel(ctx), idemKey); releaseErr != nil {
			h.logger.ErrorContext(ctx, "failed to release idempotency key",
				"order_id", orderID,
				"error", releaseErr,
			)
		}
		h.writeServiceError(w, r, err)
		return
	}

	body, err := json.Marshal(map[string]any{"payment": event})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	response := ports.StoredResponse{
		StatusCode: http.StatusAccepted,
		Body:       body,
		OrderID:    orderID,
	}
	if err := h.service.SaveIdempotentResponse(ctx, idemKey, response); err != nil {
		// The event is already on the bus; replay protection is lost for this key only.
		h.logger.ErrorContext(ctx, "failed to store idempotent response",
			"order_id", orderID,
			"error", err,
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write(body)
}

// writeStoredResponse answers a request whose idempotency key is already taken.
func writeStoredResponse(w http.ResponseWriter, stored *ports.StoredResponse, orderID string) {
	if stored.OrderID != orderID {
		writeError(w, http.StatusUnprocessableEntity, "Idempotency-Key already used for another order")
		return
	}
	if stored.Pending() {
		writeError(w, http.StatusConflict, "request with this Idempotency-Key is already in progress")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(idempotentReplayedHeader, "true")
	w.WriteHeader(stored.StatusCode)
	_, _ = w.Write(stored.Body)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidStatus), errors.Is(err, commands.ErrInvalidCommand), errors.Is(err, queries.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, commands.ErrNotPublished):
		writeError(w, http.StatusServiceUnavailable, "event bus unavailable")
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
