package notification

import (
	"context"
	"log/slog"

	"github.com/SscSPs/settlement_engine/internal/core/domain"
	portssvc "github.com/SscSPs/settlement_engine/internal/core/ports/services"
	"github.com/SscSPs/settlement_engine/internal/middleware"
	"github.com/google/uuid"
)

// LogDispatcher acknowledges every notification after writing it to the request logger.
// Used when no delivery service is configured.
type LogDispatcher struct{}

var _ portssvc.NotificationDispatcher = LogDispatcher{}

func (LogDispatcher) Send(ctx context.Context, n domain.Notification) (domain.DeliveryResult, error) {
	messageID := uuid.NewString()
	middleware.GetLoggerFromCtx(ctx).InfoContext(ctx, "notification dispatched",
		slog.String("kind", string(n.Kind)),
		slog.String("reference_id", n.ReferenceID),
		slog.String("recipient", n.Recipient.Reference),
		slog.String("message_id", messageID),
	)
	return domain.DeliveryResult{Status: domain.DeliveryDelivered, MessageID: messageID}, nil
}
