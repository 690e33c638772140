// Command devtoken prints a signed access token for local testing of
// authenticated and admin routes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

func main() {
	userID := flag.Uint("user", 1, "user id to put in the token")
	emailAddr := flag.String("email", "dev@example.com", "email claim")
	admin := flag.Bool("admin", false, "issue an admin token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if cfg.IsProduction() {
		logrus.Fatal("Refusing to mint tokens with production configuration")
	}

	jwtManager := auth.NewJWTManager(cfg)
	token, err := jwtManager.GenerateAccessToken(*userID, *emailAddr, *admin)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to generate token")
	}

	claims, err := jwtManager.ValidateAccessToken(token)
	if err != nil {
		logrus.WithError(err).Fatal("Generated token does not validate")
	}

	fmt.Fprintf(os.Stderr, "user=%d admin=%t expires=%s\n", claims.UserID, claims.IsAdmin, claims.ExpiresAt.Time)
	fmt.Println(token)
}
