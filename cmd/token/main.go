package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/code-centre/tech-centre-api/config"
	"github.com/code-centre/tech-centre-api/utils/auth"
)

// Issues access tokens for local testing of the checkout API
func main() {
	userID := flag.Uint("user", 1, "student or staff user id")
	email := flag.String("email", "student@techcentre.local", "email claim")
	role := flag.String("role", auth.RoleStudent, "student or admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if err := config.LoadENV(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	env, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}
	if env.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}
	if *role != auth.RoleStudent && *role != auth.RoleAdmin {
		log.Fatalf("Unknown role %q", *role)
	}

	manager := auth.NewJWTManager(auth.JWTConfig{
		Secret: env.JWT_SECRET,
		Issuer: env.JWT_ISSUER,
		Expiry: *ttl,
	})

	token, jti, err := manager.GenerateAccessToken(uint(*userID), *email, *role)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Printf("Role:    %s\n", *role)
	fmt.Printf("User ID: %d\n", *userID)
	fmt.Printf("JTI:     %s\n", jti)
	fmt.Printf("Expires: %s\n", time.Now().Add(*ttl).Format(time.RFC3339))
	fmt.Println(separator)
	fmt.Printf("Authorization: Bearer %s\n", token)
}
