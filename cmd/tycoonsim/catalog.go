package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/tycoon-sim/internal/catalog"
	"github.com/talgya/tycoon-sim/internal/config"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect game data",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [dir]",
		Short: "Validate buildings.json, products.json and recipes.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			} else {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				dir = cfg.Paths.Catalog
			}
			return checkCatalog(dir)
		},
	})
	return cmd
}

func checkCatalog(dir string) error {
	_, rep, err := catalog.Load(dir)
	if err != nil {
		return err
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"File", "Records", "Errors"}),
	)
	row := func(file string, records, errs int) {
		status := color.GreenString("0")
		if errs > 0 {
			status = color.RedString(strconv.Itoa(errs))
		}
		_ = table.Append([]string{file, strconv.Itoa(records), status})
	}
	row("buildings.json", len(rep.Buildings.Records), len(rep.Buildings.Errors))
	row("products.json", len(rep.Products.Records), len(rep.Products.Errors))
	row("recipes.json", len(rep.Recipes.Records), len(rep.Recipes.Errors))
	_ = table.Render()

	if rep.OK() {
		color.New(color.FgGreen, color.Bold).Println("✓ Catalog is valid")
		return nil
	}
	for _, e := range rep.Errors() {
		color.Yellow("  %s", e)
	}
	return fmt.Errorf("%d invalid records in %s", len(rep.Errors()), dir)
}
