package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tanukai/factorytown/internal/persistence"
)

func newInspectCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "inspect [run-id]",
		Short: "Summarize recorded runs from a run database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			db, err := persistence.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) == 0 {
				return listRuns(db)
			}
			return showRun(db, args[0])
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "factorytown.db", "run database to inspect")
	return cmd
}

func listRuns(db *persistence.DB) error {
	runs, err := db.Runs()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, r := range runs {
		outcome := "completed"
		if r.Collapsed {
			outcome = "collapsed"
		}
		fmt.Printf("%s  %s  seed %d  %s days  %s\n",
			r.ID, r.CreatedAt, r.Seed, humanize.Comma(int64(r.Days)), outcome)
	}
	return nil
}

func showRun(db *persistence.DB, runID string) error {
	row, err := db.Run(runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}
	cfg, err := row.Config()
	if err != nil {
		return fmt.Errorf("decode run config: %w", err)
	}

	fmt.Printf("Run %s (recorded %s)\n", row.ID, row.CreatedAt)
	fmt.Printf("Scenario: %d workers, %d job slots, wage %.1f, seed %d.\n",
		cfg.PopulationSize, cfg.InitialJobSlots, cfg.InitialWage, cfg.Seed)
	fmt.Printf("Outcome: %s ticks over %s days", humanize.Comma(int64(row.FinalTick)), humanize.Comma(int64(row.Days)))
	if row.Collapsed && row.CollapseTick != nil {
		fmt.Printf(", collapsed at tick %s", humanize.Comma(int64(*row.CollapseTick)))
	}
	fmt.Println(".")

	snaps, err := db.SnapshotHistory(runID, 0, 1<<62, 2000)
	if err != nil {
		return err
	}
	if len(snaps) > 0 {
		minPrice, maxPrice := snaps[0].Price, snaps[0].Price
		maxInventory := snaps[0].Inventory
		for _, s := range snaps {
			if s.Price < minPrice {
				minPrice = s.Price
			}
			if s.Price > maxPrice {
				maxPrice = s.Price
			}
			if s.Inventory > maxInventory {
				maxInventory = s.Inventory
			}
		}
		last := snaps[len(snaps)-1]
		fmt.Printf("Price ranged %s to %s; peak inventory %s units.\n",
			humanize.CommafWithDigits(minPrice, 2),
			humanize.CommafWithDigits(maxPrice, 2),
			humanize.CommafWithDigits(maxInventory, 1),
		)
		fmt.Printf("Final day %d: phase %s, %d employed, price %s, inventory %s.\n",
			last.Day, last.Phase, last.Headcount,
			humanize.CommafWithDigits(last.Price, 2),
			humanize.CommafWithDigits(last.Inventory, 1),
		)
	}

	events, err := db.RecentEvents(runID, 15)
	if err != nil {
		return err
	}
	if len(events) > 0 {
		fmt.Println("\nRecent events:")
		for i := len(events) - 1; i >= 0; i-- {
			e := events[i]
			fmt.Printf("  tick %6d  [%s]  %s\n", e.Tick, e.Category, e.Description)
		}
	}
	return nil
}
