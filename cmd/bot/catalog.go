package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"roulette-bot/internal/catalog"
	"roulette-bot/internal/config"
)

func catalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the reward catalog",
	}

	var path, imageDir string
	check := &cobra.Command{
		Use:   "check",
		Short: "Validate the catalog file and item images",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadForTools()
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.Catalog.Path
			}
			if imageDir == "" {
				imageDir = cfg.Catalog.ImageDir
			}

			cat, err := catalog.Load(path, imageDir)
			if err != nil {
				return err
			}

			var total float64
			for _, item := range cat.Items() {
				total += item.Weight
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %-32s price %-8d chance %v\n", item.ID, item.Name, item.Price, item.Weight)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d items, total weight %.4f\n", cat.Len(), total)
			return nil
		},
	}
	check.Flags().StringVar(&path, "path", "", "catalog file (default CATALOG_PATH)")
	check.Flags().StringVar(&imageDir, "images", "", "item image directory (default CATALOG_IMAGE_DIR)")

	cmd.AddCommand(check)
	return cmd
}
