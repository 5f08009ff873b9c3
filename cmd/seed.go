/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/retroshop/apiserver/config"
	"github.com/retroshop/apiserver/internal/db"
	"github.com/retroshop/apiserver/internal/services"
	"github.com/retroshop/apiserver/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// seedCmd seeds initial reference data from the command line, the same run
// the /admin/seed endpoint performs.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed initial categories, products, and the admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		logger, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() {
			_ = dbConn.Close()
		}()

		seedService := services.NewSeedService(
			store.NewUserRepository(dbConn),
			store.NewProfileRepository(dbConn),
			store.NewCategoryRepository(dbConn),
			store.NewProductRepository(dbConn),
			cfg.Admin,
			logger,
		)

		report, err := seedService.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
