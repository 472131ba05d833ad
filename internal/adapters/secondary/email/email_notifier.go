package email

import (
	"context"
	"log/slog"
	"time"

	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
)

// lookupTimeout bounds the recipient lookup; notifications run detached from
// any request.
const lookupTimeout = 5 * time.Second

// MockSMTPNotifier is a secondary adapter that mocks sending emails.
// It implements the ports.Notifier interface.
type MockSMTPNotifier struct {
	userRepo ports.UserRepository
	sender   string
	logger   *slog.Logger
}

var _ ports.Notifier = (*MockSMTPNotifier)(nil)

// NewMockSMTPNotifier creates a new mock notifier.
// It requires a UserRepository to fetch recipient details.
func NewMockSMTPNotifier(userRepo ports.UserRepository, sender string, logger *slog.Logger) *MockSMTPNotifier {
	return &MockSMTPNotifier{
		userRepo: userRepo,
		sender:   sender,
		logger:   logger.With("component", "email_notifier"),
	}
}

// Notify logs the notification instead of sending an email. It runs in a
// separate goroutine and handles its own errors.
func (n *MockSMTPNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	// 1. Get the recipient's details
	user, err := n.userRepo.GetByID(lookupCtx, params.RecipientUserID)
	if err != nil {
		n.logger.Error("failed to get user for notification",
			"user_id", params.RecipientUserID,
			"error", err,
		)
		return
	}

	if user.Email == "" {
		n.logger.Warn("notification recipient has no email address", "user_id", user.ID)
		return
	}

	// 2. Log the mock email
	n.logger.Info("mock email sent",
		"from", n.sender,
		"to_name", user.DisplayName(),
		"to_email", user.Email,
		"subject", params.Subject,
		"link", params.Link,
	)
}
