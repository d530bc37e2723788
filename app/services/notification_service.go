package services

import (
	"context"
	"fmt"

	businessflow "github.com/ptichkin/brooder/business_flow"
	"github.com/ptichkin/brooder/models"
)

// NotificationService renders order lifecycle messages and sends them to the
// order's owner over Telegram. It satisfies businessflow.CustomerNotifier.
type NotificationService struct {
	telegram TelegramService
}

// NewNotificationService creates a new notification service instance
func NewNotificationService(telegram TelegramService) *NotificationService {
	return &NotificationService{telegram: telegram}
}

var _ businessflow.CustomerNotifier = (*NotificationService)(nil)

// NotifyOrderConfirmed tells the customer their reservation is confirmed
func (n *NotificationService) NotifyOrderConfirmed(ctx context.Context, order *models.Order) error {
	text := fmt.Sprintf(
		"✅ Order #%d confirmed!\n%s (%s)\nDelivery: %s\nQuantity: %d\nTotal: %.2f",
		order.ID, order.Breed, order.Incubator,
		order.Date.Format("02.01.2006"), order.Quantity, order.Total(),
	)
	return n.telegram.SendMessage(ctx, order.UserID, text)
}

// NotifyOrderCancelled tells the customer their order was cancelled
func (n *NotificationService) NotifyOrderCancelled(ctx context.Context, order *models.Order, adminInitiated bool) error {
	var text string
	if adminInitiated {
		text = fmt.Sprintf(
			"❌ Order #%d was cancelled by the store.\n%s, delivery %s.\nThe reserved units were returned to stock.",
			order.ID, order.Breed, order.Date.Format("02.01.2006"),
		)
	} else {
		text = fmt.Sprintf("❌ Order #%d cancelled. The reserved units were returned to stock.", order.ID)
	}
	return n.telegram.SendMessage(ctx, order.UserID, text)
}

// NotifyOrderIssued sends the handover receipt
func (n *NotificationService) NotifyOrderIssued(ctx context.Context, order *models.Order) error {
	text := fmt.Sprintf(
		"📦 Order #%d issued.\n%s x%d\nTotal: %.2f\nThank you for your purchase!",
		order.ID, order.Breed, order.Quantity, order.Total(),
	)
	return n.telegram.SendMessage(ctx, order.UserID, text)
}

// NotifyDeliveryReminder reminds the customer about tomorrow's pickup
func (n *NotificationService) NotifyDeliveryReminder(ctx context.Context, order *models.Order) error {
	text := fmt.Sprintf(
		"🔔 Reminder: order #%d (%s x%d) arrives tomorrow, %s. See you at pickup!",
		order.ID, order.Breed, order.Quantity, order.Date.Format("02.01.2006"),
	)
	return n.telegram.SendMessage(ctx, order.UserID, text)
}

// SendOpsReport posts an operational summary to the ops chat
func (n *NotificationService) SendOpsReport(ctx context.Context, chatID int64, text string) error {
	if chatID == 0 {
		return nil
	}
	return n.telegram.SendMessage(ctx, chatID, text)
}
