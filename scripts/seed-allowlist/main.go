package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hostel-leave-api/internal/models"
	"github.com/noah-isme/hostel-leave-api/internal/repository"
	"github.com/noah-isme/hostel-leave-api/pkg/config"
	"github.com/noah-isme/hostel-leave-api/pkg/database"
)

// Seeds the first admin allow-list entry so the portal can be bootstrapped
// without touching the database by hand.
func main() {
	email := flag.String("email", "", "admin email (required)")
	name := flag.String("name", "Portal Admin", "admin full name")
	password := flag.String("password", "", "optional password for the fallback login")
	flag.Parse()

	if *email == "" {
		log.Fatal("usage: seed-allowlist -email admin@example.com [-name ...] [-password ...]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	normalized := strings.ToLower(strings.TrimSpace(*email))
	if existing, err := repo.FindByEmail(ctx, normalized); err == nil {
		log.Printf("entry already exists: %s (%s, active=%t)", existing.Email, existing.Role, existing.Active)
		return
	}

	user := &models.User{
		Email:    normalized,
		FullName: *name,
		Role:     models.RoleAdmin,
		Active:   true,
	}
	if *password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}
		hashed := string(hash)
		user.PasswordHash = &hashed
	}

	if err := repo.Create(ctx, user); err != nil {
		log.Fatalf("failed to create admin entry: %v", err)
	}

	log.Printf("seeded admin %s (%s)", user.Email, user.ID)
}
