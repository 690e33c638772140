// Package testutil wires throwaway SQLite and Redis backends for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database and migrates models.
// A single connection serialises transactions the way row locks would.
func NewDB(t testing.TB, models ...interface{}) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", sanitize(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models...))

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewRedis starts a miniredis server and returns a client bound to it.
func NewRedis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// Config returns a configuration suitable for tests.
func Config() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "Storefront Test", Environment: "test"},
		Server: config.ServerConfig{
			Port:           "0",
			RequestTimeout: 5 * time.Second,
		},
		JWT: config.JWTConfig{
			Secret:            "test-secret-key-that-is-long-enough-123",
			AccessTokenExpiry: time.Hour,
		},
		Security: config.SecurityConfig{
			RateLimitPerMinute: 1000,
			CORSAllowedOrigins: []string{"*"},
			CORSAllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
			CORSAllowedHeaders: []string{"Content-Type", "Authorization"},
		},
		Internal: config.InternalConfig{APISecret: "internal-secret-for-tests-0123456789"},
		Payment: config.PaymentConfig{
			Currency:       "INR",
			GatewayTimeout: 2 * time.Second,
			IntentRetries:  1,
			CheckoutTTL:    30 * time.Minute,
			Razorpay: config.RazorpayConfig{
				KeyID:     "rzp_test_key",
				KeySecret: "rzp_test_secret",
			},
			PayU: config.PayUConfig{
				Key:        "payu_key",
				Salt:       "payu_salt",
				BaseURL:    "https://test.payu.in/_payment",
				SuccessURL: "http://localhost/api/v1/payu/callback",
				FailureURL: "http://localhost/api/v1/payu/callback",
			},
		},
		Checkout: config.CheckoutConfig{
			ShippingFee:         decimal.Zero,
			FreeShippingAbove:   decimal.Zero,
			MaxOrderNumberTries: 5,
		},
		Email: config.EmailConfig{Provider: "log", FromEmail: "noreply@example.com", FromName: "Storefront"},
		Notification: config.NotificationConfig{
			BaseURL:        "http://localhost:3000",
			EnqueueTimeout: time.Second,
			MaxAttempts:    3,
			PollTimeout:    100 * time.Millisecond,
		},
		Company: config.CompanyConfig{Name: "Storefront"},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
