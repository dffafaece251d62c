package notify

import "encoding/json"

// Payload is the wire shape of one notification. Fields are declared in
// key-sorted order and encoding/json preserves declaration order, so the
// marshaled bytes are canonical; the HMAC signature is computed over
// exactly these bytes and the receiver must verify against them.
type Payload struct {
	BatchSize  int     `json:"batch_size"`
	Confidence float64 `json:"confidence"`
	LampID     int     `json:"lamp_id"`
	LampIDs    []int   `json:"lamp_ids"`
	Message    string  `json:"message"`
	State      string  `json:"state"`
	Timestamp  int64   `json:"timestamp"`
}

// BuildPayload maps a batch onto the wire shape. The representative
// lamp_id and confidence come from the first (lowest-id) alarm.
func BuildPayload(b *Batch) Payload {
	rep := b.Alarms[0]
	return Payload{
		BatchSize:  len(b.Alarms),
		Confidence: rep.Confidence,
		LampID:     rep.LampID,
		LampIDs:    b.LampIDs(),
		Message:    message(b),
		State:      "RED",
		Timestamp:  b.FlushedAt.Unix(),
	}
}

// MarshalCanonical returns the canonical JSON bytes to sign and send.
func (p Payload) MarshalCanonical() ([]byte, error) {
	return json.Marshal(p)
}
