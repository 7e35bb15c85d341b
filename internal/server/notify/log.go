package notify

import (
	"context"
	"net/url"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// LogNotifier is the development notifier: it only logs the message.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "notify")}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.logger.Info(ctx, "notification issued",
		"kind", string(msg.Kind),
		"user_id", msg.UserID,
		"recipient", msg.Recipient,
		"subject", msg.Subject,
		"link", redactLink(msg.Link),
	)
	return nil
}

// redactLink masks the token query value; a logged link must not be usable.
func redactLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return "[unparseable link]"
	}
	q := u.Query()
	if q.Has("token") {
		q.Set("token", "redacted")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
