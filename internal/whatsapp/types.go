// Package whatsapp implements the WhatsApp Business Cloud API surface:
// the inbound webhook envelope types and the outbound send client.
package whatsapp

// BusinessAccountObject is the object discriminator the Cloud API sets on
// message webhooks. Payloads with any other value are not ours to handle.
const BusinessAccountObject = "whatsapp_business_account"

// Event is the top-level webhook payload.
type Event struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Value Value  `json:"value"`
	Field string `json:"field"`
}

// Value carries the actual notification payload. Messages is absent on
// status/delivery notifications.
type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Contacts         []Contact `json:"contacts,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
	Statuses         []Status  `json:"statuses,omitempty"`
}

type Contact struct {
	WaID    string  `json:"wa_id"`
	Profile Profile `json:"profile"`
}

type Profile struct {
	Name string `json:"name"`
}

// Message is a single inbound message. Text is only set when Type is "text".
type Message struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *Text  `json:"text,omitempty"`
}

type Text struct {
	Body string `json:"body"`
}

// Status is a delivery/read receipt. Receipt processing is out of scope;
// the field exists so such payloads decode cleanly and fall through.
type Status struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// outboundMessage is the send API request body.
type outboundMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             Text   `json:"text"`
}
