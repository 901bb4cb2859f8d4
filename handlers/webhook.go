package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/smtp"
	"os"
	"time"

	"unitedkarts/internal/orders"
	"unitedkarts/internal/stores/kafka"
	"unitedkarts/internal/users"
	"unitedkarts/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
)

// Webhook receives Stripe events. payment_intent.succeeded marks the matching
// order paid; everything else is acknowledged and dropped.
func (h *Handler) Webhook(c *gin.Context) {
	traceId := uuid.NewString()
	const MaxBodyBytes = int64(65536)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	var event stripe.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		slog.Error("failed to bind webhook event", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var paymentIntent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
			slog.Error("failed to unmarshal payment intent", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		orderID := paymentIntent.Metadata["order_id"]
		if orderID == "" {
			slog.Error("payment intent missing order_id metadata", slog.String(logkey.TraceID, traceId),
				slog.String("payment_intent", paymentIntent.ID))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing order_id metadata"})
			return
		}
		slog.Info("payment captured", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.OrderID, orderID), slog.String("payment_intent", paymentIntent.ID))

		ctx := c.Request.Context()
		if err := h.o.MarkPaid(ctx, orderID, paymentIntent.ID); err != nil {
			slog.Error("failed to mark order paid", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to record payment"})
			return
		}

		order, err := h.o.GetOrder(ctx, orderID)
		if err != nil {
			slog.Error("failed to load paid order", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
			c.Status(http.StatusOK)
			return
		}

		if h.k != nil {
			go h.producePaidEvents(traceId, order)
		}

		// The email outlives the request; the request context is cancelled as
		// soon as this handler returns.
		go func() {
			emailCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			user, err := h.u.GetUserByID(emailCtx, order.CustomerID)
			if err != nil {
				if !errors.Is(err, users.ErrNotFound) {
					slog.Error("failed to load customer for email", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
				}
				return
			}
			if err := sendOrderConfirmationEmail(user.Email, order.OrderNumber); err != nil {
				slog.Error("failed to send confirmation email", slog.String(logkey.TraceID, traceId),
					slog.String(logkey.OrderID, orderID), slog.String(logkey.ERROR, err.Error()))
			}
		}()

		c.Status(http.StatusOK)

	default:
		slog.Info("unhandled event type", slog.String(logkey.TraceID, traceId), slog.String("event_type", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{
			"message": "Event type not handled",
			"event":   event.Type,
		})
	}
}

// producePaidEvents emits one OrderPaidEvent per order line.
func (h *Handler) producePaidEvents(traceId string, order orders.Order) {
	for _, item := range order.Items {
		jsonData, err := json.Marshal(kafka.OrderPaidEvent{
			OrderID:    order.ID,
			FoodItemID: item.FoodItemID,
			Quantity:   item.Quantity,
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			slog.Error("failed to marshal order paid event", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			return
		}
		if err := h.k.ProduceMessage(kafka.TopicOrderPaid, []byte(order.ID), jsonData); err != nil {
			slog.Error("failed to produce order paid event", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
			return
		}
	}
}

func sendOrderConfirmationEmail(to string, orderNumber string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	username := os.Getenv("SMTP_USERNAME")
	password := os.Getenv("SMTP_PASSWORD")
	from := os.Getenv("SMTP_FROM")
	if smtpHost == "" || smtpPort == "" || from == "" {
		return nil
	}

	subject := "Order Confirmation"
	body := fmt.Sprintf("Thank you for your order! Your order number is %s. We are processing it now.", orderNumber)

	message := []byte("To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", username, password, smtpHost)
	return smtp.SendMail(smtpHost+":"+smtpPort, auth, from, []string{to}, message)
}
