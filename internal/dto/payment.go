package dto

// CheckoutSessionResponse carries the hosted checkout URL.
type CheckoutSessionResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
}

// WebhookResult acknowledges a provider webhook delivery.
type WebhookResult struct {
	Received  bool   `json:"received"`
	EventType string `json:"eventType,omitempty"`
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// RoleEntry documents the access policy of one endpoint.
type RoleEntry struct {
	Endpoint    string `json:"endpoint"`
	Method      string `json:"method"`
	Access      string `json:"access"`
	Description string `json:"description"`
}
