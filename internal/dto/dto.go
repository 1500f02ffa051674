package dto

type CreateKitOrderRequest struct {
	KitID string `json:"kitId"`
}

type CreateOrderResponse struct {
	OrderID     string `json:"orderId"`
	ApprovalURL string `json:"approvalUrl"`
}

type CaptureKitOrderRequest struct {
	OrderID string `json:"orderId"`
	KitID   string `json:"kitId"`
}

type CapturePremiumOrderRequest struct {
	OrderID string `json:"orderId"`
}

type CaptureOrderResponse struct {
	Success          bool   `json:"success"`
	TransactionID    string `json:"transactionId"`
	AlreadyProcessed bool   `json:"alreadyProcessed,omitempty"`
}

type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}
