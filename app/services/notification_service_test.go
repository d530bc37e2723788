package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptichkin/brooder/models"
)

func testOrder() *models.Order {
	return &models.Order{
		UserID:    555,
		Breed:     "Brahma",
		Incubator: "North",
		Date:      time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		Quantity:  4,
		Price:     120.50,
		Status:    models.OrderStatusActive,
	}
}

func TestNotifyOrderConfirmedSendsToOwner(t *testing.T) {
	mock := NewMockTelegramService()
	svc := NewNotificationService(mock)

	require.NoError(t, svc.NotifyOrderConfirmed(context.Background(), testOrder()))

	require.Len(t, mock.SentMessages, 1)
	assert.Equal(t, int64(555), mock.SentMessages[0].ChatID)
	assert.Contains(t, mock.SentMessages[0].Text, "Brahma")
	assert.Contains(t, mock.SentMessages[0].Text, "10.09.2026")
}

func TestNotifyOrderCancelledDistinguishesInitiator(t *testing.T) {
	mock := NewMockTelegramService()
	svc := NewNotificationService(mock)
	ctx := context.Background()

	require.NoError(t, svc.NotifyOrderCancelled(ctx, testOrder(), true))
	require.NoError(t, svc.NotifyOrderCancelled(ctx, testOrder(), false))

	require.Len(t, mock.SentMessages, 2)
	assert.Contains(t, mock.SentMessages[0].Text, "cancelled by the store")
	assert.NotContains(t, mock.SentMessages[1].Text, "by the store")
}

func TestSendOpsReportSkipsWhenUnconfigured(t *testing.T) {
	mock := NewMockTelegramService()
	svc := NewNotificationService(mock)
	ctx := context.Background()

	require.NoError(t, svc.SendOpsReport(ctx, 0, "sweep done"))
	assert.Empty(t, mock.SentMessages)

	require.NoError(t, svc.SendOpsReport(ctx, 777, "sweep done"))
	require.Len(t, mock.SentMessages, 1)
	assert.Equal(t, int64(777), mock.SentMessages[0].ChatID)
}

func TestNotificationPropagatesSendFailure(t *testing.T) {
	mock := NewMockTelegramService()
	mock.FailWith = errors.New("chat not found")
	svc := NewNotificationService(mock)

	err := svc.NotifyOrderIssued(context.Background(), testOrder())
	assert.Error(t, err)
}
