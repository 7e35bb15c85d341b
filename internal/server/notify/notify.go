// Package notify delivers out-of-band messages (verification and reset links)
// to users. Delivery itself is somebody else's job: the log notifier writes the
// message to the structured log, the Kafka notifier hands it to a mailer
// service through a topic.
package notify

import "context"

type Kind string

const (
	KindVerifyEmail   Kind = "verify_email"
	KindResetPassword Kind = "reset_password"
)

// Message is one notification for one recipient.
type Message struct {
	Kind      Kind   `json:"kind"`
	UserID    string `json:"user_id"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Link      string `json:"link"`
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
