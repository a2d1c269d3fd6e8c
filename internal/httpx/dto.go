package httpx

type CreateOrderRequest struct {
	Lines []OrderLineDTO `json:"lines"`
}

type OrderLineDTO struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

type CreateOrderResponse struct {
	Accepted       bool               `json:"accepted"`
	OrderID        string             `json:"order_id,omitempty"`
	Reason         string             `json:"reason,omitempty"`
	FailingItemIDs []string           `json:"failing_item_ids,omitempty"`
	Detail         *PartialFailureDTO `json:"detail,omitempty"`
}

// PartialFailureDTO surfaces the Executing stage's per-branch result
// verbatim: which reservations failed and whether the order record was
// written. No compensation has happened when the caller sees this.
type PartialFailureDTO struct {
	OrderRecorded      bool                   `json:"order_recorded"`
	OrderError         string                 `json:"order_error,omitempty"`
	FailedReservations []FailedReservationDTO `json:"failed_reservations,omitempty"`
}

type FailedReservationDTO struct {
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

type OrderResponse struct {
	ID        string         `json:"id"`
	Lines     []OrderLineDTO `json:"lines"`
	CreatedAt string         `json:"created_at"`
}

type ItemResponse struct {
	ID    string `json:"id"`
	Stock int64  `json:"stock"`
}

type PutItemRequest struct {
	Stock int64 `json:"stock"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
