package relay

// PayloadError reports an inbound webhook body that is missing the required
// top-level shape. It is the only error Process lets escape; everything
// downstream of payload validation degrades in place.
type PayloadError struct {
	Reason string
}

func (e *PayloadError) Error() string {
	return "invalid webhook payload: " + e.Reason
}
