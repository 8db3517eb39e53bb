package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"routine/internal/config"
	"routine/internal/database"
	"routine/internal/domain"
	"routine/internal/repository"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	email := flag.String("email", "demo@routine.local", "demo user email")
	password := flag.String("password", "demo12345", "demo user password")
	name := flag.String("name", "Demo User", "demo user display name")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}
	cfg, err := config.LoadAuthRuntimeConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	users := repository.NewUserRepository(db)
	ctx := context.Background()

	if _, err := users.GetByEmail(ctx, *email); err == nil {
		log.Printf("user %s already exists, nothing to do", *email)
		return
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		log.Fatalf("lookup failed: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), cfg.BcryptCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	u := &domain.User{Email: *email, PasswordHash: string(hash), Name: *name}
	if err := users.Create(ctx, u); err != nil {
		log.Fatalf("create user: %v", err)
	}
	log.Printf("demo user created: id=%d %s / %s", u.ID, u.Email, *password)
}
