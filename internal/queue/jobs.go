package queue

import (
	"encoding/json"
	"fmt"
)

// Kind identifies a job type. The set is closed; the worker dispatches
// through a handler table keyed by Kind and drops anything it does not know.
type Kind string

const (
	// KindProcessFile instructs the worker to repair one uploaded file.
	KindProcessFile Kind = "file:process"
	// KindSendWelcomeEmail greets a freshly provisioned user.
	KindSendWelcomeEmail Kind = "email:welcome"
)

// Valid reports whether k names a known job kind.
func (k Kind) Valid() bool {
	switch k {
	case KindProcessFile, KindSendWelcomeEmail:
		return true
	}
	return false
}

// ProcessFilePayload tells the worker which file to repair.
type ProcessFilePayload struct {
	FileID string `json:"file_id"`
}

// SendWelcomeEmailPayload tells the worker which user to greet.
type SendWelcomeEmailPayload struct {
	UserID string `json:"user_id"`
}

// Envelope wraps every queued payload with its job kind so the consumer can
// dispatch without guessing at the payload shape.
type Envelope struct {
	Job     Kind            `json:"job"`
	Payload json.RawMessage `json:"payload"`
}

// Encode builds the wire form of a job.
func Encode(kind Kind, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	env := Envelope{Job: kind, Payload: data}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return out, nil
}

// Decode parses the wire form back into an envelope. Unknown kinds are an
// error so the consumer can log and drop them.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if !env.Job.Valid() {
		return nil, fmt.Errorf("unknown job kind %q", env.Job)
	}
	return &env, nil
}
