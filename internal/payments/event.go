package payments

// EventChargeSuccess is the only provider event that triggers settlement.
const EventChargeSuccess = "charge.success"

// ChargeEvent is the provider's webhook payload. Reference carries the order
// id the transaction was initiated with.
type ChargeEvent struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

type EventData struct {
	Reference string        `json:"reference"`
	Customer  EventCustomer `json:"customer"`
}

type EventCustomer struct {
	Email string `json:"email"`
}
