package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-feedback-responder/internal/config"
	"github.com/tbourn/go-feedback-responder/internal/domain"
	"github.com/tbourn/go-feedback-responder/internal/marketplace"
	"github.com/tbourn/go-feedback-responder/internal/repo"
	"github.com/tbourn/go-feedback-responder/internal/services"
	"github.com/tbourn/go-feedback-responder/internal/sysutil"
)

// seedExample is one corpus entry of the seed file: a past review and the
// approved reply to offer the generator as few-shot guidance.
type seedExample struct {
	ProductName  string `json:"product_name"`
	Rating       *int   `json:"rating"`
	FeedbackText string `json:"feedback_text"`
	ReplyText    string `json:"reply_text"`
}

// seedAccount is one optional account entry of the seed file.
type seedAccount struct {
	Name        string `json:"name"`
	Marketplace string `json:"marketplace"`
	Token       string `json:"token"`
}

// seedFile is the object form of the seed file. The legacy form, a bare
// array of examples, still parses.
type seedFile struct {
	Accounts []seedAccount `json:"accounts"`
	Examples []seedExample `json:"examples"`
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference examples and accounts from a JSON file",
		Long: "Load reference examples (and, optionally, seller accounts) from a JSON file.\n" +
			"The file is either a bare array of {product_name, rating, feedback_text,\n" +
			"reply_text} objects, or an object with \"examples\" and an optional\n" +
			"\"accounts\" list of {name, marketplace, token}. Entries already present\n" +
			"are skipped or updated in place, so re-running is safe.",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := cmd.Flags().GetString("file")
			if err != nil {
				return err
			}
			return runSeed(file)
		},
	}

	cmd.Flags().StringP("file", "f", "examples.json", "Path to the seed JSON file")

	return cmd
}

func runSeed(path string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	sysutil.SetLogLevel(cfg.LogLevel)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}
	var sf seedFile
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		err = json.Unmarshal(data, &sf.Examples)
	} else {
		err = json.Unmarshal(data, &sf)
	}
	if err != nil {
		return fmt.Errorf("parsing seed file: %w", err)
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	ctx := context.Background()
	accounts := services.NewAccountService(db)
	examples := services.NewExampleService(db)

	for i, a := range sf.Accounts {
		switch a.Marketplace {
		case marketplace.Wildberries, marketplace.YandexMarket:
		default:
			return fmt.Errorf("account entry %d: unknown marketplace %q", i, a.Marketplace)
		}
		if _, err := accounts.Provision(ctx, a.Name, a.Marketplace, a.Token); err != nil {
			return fmt.Errorf("provisioning account %q: %w", a.Name, err)
		}
	}

	var created, skipped int
	for i, e := range sf.Examples {
		var n int64
		err := db.WithContext(ctx).
			Model(&domain.ReferenceExample{}).
			Where("feedback_text = ? AND reply_text = ?", e.FeedbackText, e.ReplyText).
			Count(&n).Error
		if err != nil {
			return fmt.Errorf("checking entry %d: %w", i, err)
		}
		if n > 0 {
			skipped++
			continue
		}
		if _, err := examples.Create(ctx, e.ProductName, e.Rating, e.FeedbackText, e.ReplyText); err != nil {
			return fmt.Errorf("seeding entry %d: %w", i, err)
		}
		created++
	}

	log.Info().
		Int("accounts", len(sf.Accounts)).
		Int("created", created).
		Int("skipped", skipped).
		Msg("seed complete")
	return nil
}
