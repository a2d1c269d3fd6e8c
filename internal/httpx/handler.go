package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/order-fulfillment/internal/inventory"
	"github.com/jcmexdev/order-fulfillment/internal/order"
	"github.com/jcmexdev/order-fulfillment/internal/pkg/contextkeys"
	"github.com/jcmexdev/order-fulfillment/internal/saga"
)

// Handler exposes the fulfillment saga and the two stores over HTTP.
type Handler struct {
	saga      *saga.Orchestrator
	inventory inventory.Store
	orders    order.Store
}

func NewHandler(orch *saga.Orchestrator, inv inventory.Store, orders order.Store) *Handler {
	return &Handler{
		saga:      orch,
		inventory: inv,
		orders:    orders,
	}
}

// CreateOrder runs one saga synchronously and maps its terminal outcome to
// the wire contract. A well-formed request always gets a structured body,
// never a bare transport error.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	lines := make([]order.Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, order.Line{ItemID: l.ItemID, Quantity: l.Quantity})
	}

	requestID, _ := r.Context().Value(contextkeys.RequestID).(string)
	slog.InfoContext(r.Context(), "order requested", "request_id", requestID, "lines", len(lines))

	out, err := h.saga.Run(r.Context(), saga.Request{Lines: lines})
	if err != nil {
		var verr *saga.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "invalid_request", verr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "saga_error", err.Error())
		return
	}

	switch out.State {
	case saga.StateCommitted:
		writeJSON(w, http.StatusCreated, CreateOrderResponse{
			Accepted: true,
			OrderID:  out.OrderID,
		})
	case saga.StateInsufficientStock:
		writeJSON(w, http.StatusConflict, CreateOrderResponse{
			Accepted:       false,
			Reason:         "insufficient_stock",
			FailingItemIDs: out.FailingItemIDs,
		})
	case saga.StateIndeterminate:
		// Transient check failures: the stock position is unknown, which is
		// deliberately not reported as a shortfall. The caller may retry.
		writeJSON(w, http.StatusServiceUnavailable, CreateOrderResponse{
			Accepted: false,
			Reason:   "indeterminate",
		})
	case saga.StatePartiallyFailed:
		writeJSON(w, http.StatusBadGateway, CreateOrderResponse{
			Accepted: false,
			Reason:   "partial_failure",
			OrderID:  out.OrderID,
			Detail:   mapDetail(out.Detail),
		})
	default:
		writeError(w, http.StatusInternalServerError, "unexpected_state", string(out.State))
	}
}

// GetOrderByID retrieves a recorded order.
func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "order_id_required", "")
		return
	}

	o, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order_not_found", orderID)
			return
		}
		writeError(w, http.StatusBadGateway, "order_store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(o))
}

// GetItem reports an item's current stock.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "item_id_required", "")
		return
	}

	item, err := h.inventory.Get(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item_not_found", itemID)
			return
		}
		writeError(w, http.StatusBadGateway, "inventory_store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ItemResponse{ID: item.ID, Stock: item.Stock})
}

// PutItem creates or replaces an item's stock level. Admin seeding surface;
// the saga itself never writes through this path.
func (h *Handler) PutItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "item_id_required", "")
		return
	}

	var req PutItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "invalid_stock", "stock must be non-negative")
		return
	}

	if err := h.inventory.Put(r.Context(), inventory.Item{ID: itemID, Stock: req.Stock}); err != nil {
		writeError(w, http.StatusBadGateway, "inventory_store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ItemResponse{ID: itemID, Stock: req.Stock})
}

func mapDetail(d *saga.ExecutionDetail) *PartialFailureDTO {
	if d == nil {
		return nil
	}
	dto := &PartialFailureDTO{OrderRecorded: d.OrderRecorded}
	if d.OrderErr != nil {
		dto.OrderError = d.OrderErr.Error()
	}
	for _, f := range d.FailedReservations {
		dto.FailedReservations = append(dto.FailedReservations, FailedReservationDTO{
			ItemID: f.ItemID,
			Error:  f.Err.Error(),
		})
	}
	return dto
}

func mapOrderToResponse(o order.Order) OrderResponse {
	lines := make([]OrderLineDTO, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = OrderLineDTO{ItemID: l.ItemID, Quantity: l.Quantity}
	}
	return OrderResponse{
		ID:        o.ID,
		Lines:     lines,
		CreatedAt: o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
