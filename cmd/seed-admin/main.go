package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/skynetdev/incidentes-api/internal/auth"
	"github.com/skynetdev/incidentes-api/internal/config"
	"github.com/skynetdev/incidentes-api/internal/db"
	"github.com/skynetdev/incidentes-api/internal/models"
	"github.com/skynetdev/incidentes-api/pkg/logger"
)

// seed-admin creates the initial administrator account. It is idempotent:
// when the username already exists it reports so and exits cleanly.
func main() {
	username := flag.String("username", "", "admin username to create")
	password := flag.String("password", "", "admin password")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, "")

	if *username == "" || *password == "" {
		log.Fatal("both -username and -password are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, cfg.MongoURI, cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("could not connect to MongoDB")
	}
	defer database.Close(context.Background())

	if err := database.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Fatal("could not create indexes")
	}

	users := database.Users()
	normalized := models.NormalizeUsername(*username)

	existing, err := users.FindByUsername(ctx, normalized)
	if err != nil {
		log.WithError(err).Fatal("lookup failed")
	}
	if existing != nil {
		log.WithField("username", normalized).Info("admin already exists, nothing to do")
		return
	}

	passwordHash, err := auth.HashPassword(*password)
	if err != nil {
		log.WithError(err).Fatal("could not hash password")
	}

	user, err := users.Insert(ctx, models.User{
		Username:     normalized,
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		log.WithError(err).Fatal("could not create admin")
	}

	log.WithFields(logrus.Fields{
		"username": user.Username,
		"role":     user.Role,
	}).Info("admin created")
}
