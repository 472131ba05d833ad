package email

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	apperrors "github.com/lorrc/fieldservice-realtime/internal/core/errors"
	"github.com/lorrc/fieldservice-realtime/internal/core/mocks"
	"github.com/lorrc/fieldservice-realtime/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMockSMTPNotifier_Notify(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	users := mocks.NewMockUserRepository()
	users.On("GetByID", mock.Anything, "u1").Return(&domain.User{
		ID:        "u1",
		Email:     "marta@example.com",
		FirstName: "Marta",
		LastName:  "Silva",
	}, nil)

	n := NewMockSMTPNotifier(users, "no-reply@fieldservice.local", logger)
	n.Notify(context.Background(), ports.NotificationParams{
		RecipientUserID: "u1",
		Subject:         "Invoice paid",
		Message:         "INV-3 was paid",
		Link:            "/invoices/3",
	})

	out := buf.String()
	assert.Contains(t, out, "mock email sent")
	assert.Contains(t, out, "marta@example.com")
	assert.Contains(t, out, "Marta Silva")
	assert.Contains(t, out, "Invoice paid")
	users.AssertExpectations(t)
}

func TestMockSMTPNotifier_UnknownUser(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	users := mocks.NewMockUserRepository()
	users.On("GetByID", mock.Anything, "ghost").Return(nil, apperrors.ErrUserNotFound)

	n := NewMockSMTPNotifier(users, "no-reply@fieldservice.local", logger)
	n.Notify(context.Background(), ports.NotificationParams{RecipientUserID: "ghost", Subject: "s"})

	assert.Contains(t, buf.String(), "failed to get user for notification")
	assert.NotContains(t, buf.String(), "mock email sent")
}
