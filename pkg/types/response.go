package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// WebhookAck is the acknowledgement body payment providers receive. The
// shape is part of the external contract: providers stop re-delivering on
// any 2xx, and the flat fields keep their dashboards readable.
type WebhookAck struct {
	Ok      bool   `json:"ok"`
	Status  string `json:"status"`
	Deduped bool   `json:"deduped,omitempty"`
	Warning string `json:"warning,omitempty"`
}
