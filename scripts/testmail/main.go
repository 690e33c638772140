// Command testmail sends a sample order confirmation through the configured
// email provider.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

func main() {
	to := flag.String("to", "", "recipient address")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := logger.New(cfg)

	if *to == "" {
		log.Fatal("Usage: go run ./scripts/testmail -to you@example.com")
	}

	emailService, err := email.NewEmailService(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialise email service")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = emailService.SendOrderConfirmationEmail(ctx, email.OrderConfirmationData{
		EmailTemplateData: email.EmailTemplateData{UserName: "Test Customer", UserEmail: *to},
		OrderNumber:       "ORD-TEST-0001",
		OrderDate:         time.Now().Format("January 2, 2006"),
		Subtotal:          "1299.00",
		ShippingFee:       "0.00",
		OrderTotal:        "1299.00",
		Currency:          cfg.Payment.Currency,
		OrderURL:          cfg.Notification.BaseURL + "/orders/ORD-TEST-0001",
		Items: []email.OrderItem{
			{Name: "Block Print Cotton Kurta", Size: "M", Quantity: 1, Price: "1299.00", Total: "1299.00"},
		},
		PaymentMethod: "razorpay",
		ShippingAddress: email.Address{
			Name: "Test Customer", Line: "12 MG Road", City: "Bengaluru",
			State: "Karnataka", PostalCode: "560001", Country: "India",
		},
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to send test email")
	}

	log.WithFields(logrus.Fields{
		"provider": cfg.Email.Provider,
		"to":       *to,
	}).Info("Test email sent")
}
