package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"barbershop/internal/config"
	"barbershop/internal/database"
	"barbershop/internal/models"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to config.yaml")
		userID     = flag.String("user", "", "identity provider user id")
		revoke     = flag.Bool("revoke", false, "remove the admin role instead of granting it")
	)
	flag.Parse()

	if *userID == "" {
		return fmt.Errorf("-user is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Open(cfg.Database, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *revoke {
		if err := db.RevokeRole(ctx, *userID, models.RoleAdmin); err != nil {
			return err
		}
	} else if err := db.GrantRole(ctx, *userID, models.RoleAdmin); err != nil {
		return err
	}

	isAdmin, err := db.HasRole(ctx, *userID, models.RoleAdmin)
	if err != nil {
		return err
	}
	logger.Info().Str("user_id", *userID).Bool("is_admin", isAdmin).Msg("role updated")
	return nil
}
