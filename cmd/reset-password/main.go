package main

import (
	"log"
	"os"

	"go-admin-rbac/internal/model"
	"go-admin-rbac/pkg/config"
	"go-admin-rbac/pkg/database"

	"golang.org/x/crypto/bcrypt"
)

// Resets a user's password from the command line. Usage:
//
//	reset-password [email] [new-password]
//
// With no arguments it resets the seeded admin account.
func main() {
	cfg := config.Load()
	db := database.ConnectDB(cfg)

	email := cfg.SeedAdminEmail
	newPassword := cfg.SeedAdminPassword
	if len(os.Args) > 1 {
		email = os.Args[1]
	}
	if len(os.Args) > 2 {
		newPassword = os.Args[2]
	}

	var user model.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		log.Fatalf("User %s not found in database: %v", email, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	if err := db.Model(&user).Update("password", string(hashedPassword)).Error; err != nil {
		log.Fatalf("Failed to update password in DB: %v", err)
	}

	log.Printf("Password for %s has been reset", email)
}
