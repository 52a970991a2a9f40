package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tanukai/factorytown/internal/api"
	"github.com/tanukai/factorytown/internal/engine"
	"github.com/tanukai/factorytown/internal/persistence"
	"github.com/tanukai/factorytown/internal/scenario"
)

func newRunCmd() *cobra.Command {
	var (
		scenarioPath string
		dbPath       string
		archivePath  string
		serve        bool
		port         int
		tickRate     float64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a simulation scenario",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runScenario(scenarioPath, dbPath, archivePath, serve, port, tickRate)
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "scenario YAML file (default: built-in reference scenario)")
	cmd.Flags().StringVar(&dbPath, "db", "", "record the run to this SQLite database")
	cmd.Flags().StringVar(&archivePath, "archive", "", "write a per-tick zstd JSONL archive to this path")
	cmd.Flags().BoolVar(&serve, "serve", false, "serve the run over HTTP while it executes")
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port when serving")
	cmd.Flags().Float64Var(&tickRate, "tick-rate", 0, "ticks per second when serving (0 = unpaced)")

	return cmd
}

func runScenario(scenarioPath, dbPath, archivePath string, serve bool, port int, tickRate float64) error {
	cfg, err := scenario.Load(scenarioPath)
	if err != nil {
		return err
	}

	sim, err := engine.New(cfg)
	if err != nil {
		return err
	}

	var (
		db  *persistence.DB
		rec *persistence.Recorder
	)
	if dbPath != "" {
		db, err = persistence.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		rec, err = persistence.NewRecorder(db, cfg)
		if err != nil {
			return err
		}
		sim.AddObserver(rec)
	}

	if archivePath != "" {
		arc, err := persistence.CreateArchive(archivePath)
		if err != nil {
			return err
		}
		sim.AddObserver(arc)
		defer func() {
			if err := arc.Close(); err != nil {
				slog.Error("archive close failed", "error", err)
			}
		}()
	}

	if serve {
		err = serveRun(sim, db, rec, port, tickRate)
	} else {
		_, err = sim.Run()
	}
	if err != nil {
		return err
	}

	res := sim.Result()
	if rec != nil {
		if err := rec.Finish(res, sim.Events()); err != nil {
			return err
		}
	}

	printSummary(sim, res)
	return nil
}

func serveRun(sim *engine.Simulation, db *persistence.DB, rec *persistence.Recorder, port int, tickRate float64) error {
	hub := api.NewHub()
	hub.OnSnapshot(sim.Snapshot())
	sim.AddObserver(hub)

	runner := &lockstepRunner{sim: sim}

	adminKey := os.Getenv("FACTORYTOWN_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("FACTORYTOWN_ADMIN_KEY not set, intervention endpoint disabled")
	}

	runID := ""
	if rec != nil {
		runID = rec.RunID()
	}
	server := &api.Server{
		Hub:       hub,
		DB:        db,
		RunID:     runID,
		Port:      port,
		AdminKey:  adminKey,
		Intervene: runner,
	}
	server.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("Factorytown is open for business: %d workers, %d job slots.\n",
		sim.Config().PopulationSize, sim.Config().InitialJobSlots)
	fmt.Printf("API: http://localhost:%d/api/v1/status (Ctrl+C to stop)\n", port)

	return runner.run(stop, tickRate)
}

// lockstepRunner steps the simulation on one goroutine and serializes
// interventions against stepping.
type lockstepRunner struct {
	mu  sync.Mutex
	sim *engine.Simulation
}

// InjectWealth applies a stimulus between ticks.
func (r *lockstepRunner) InjectWealth(amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sim.InjectWealth(amount)
}

func (r *lockstepRunner) run(stop <-chan os.Signal, tickRate float64) error {
	var delay time.Duration
	if tickRate > 0 {
		delay = time.Duration(float64(time.Second) / tickRate)
	}

	for {
		select {
		case sig := <-stop:
			slog.Info("received signal, stopping run", "signal", sig)
			return nil
		default:
		}

		r.mu.Lock()
		done := r.sim.Done()
		var err error
		if !done {
			err = r.sim.Step()
		}
		r.mu.Unlock()

		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
}

func printSummary(sim *engine.Simulation, res engine.Result) {
	snap := sim.Snapshot()

	fmt.Printf("\nRun complete: %s ticks over %s days.\n",
		humanize.Comma(int64(res.FinalTick)), humanize.Comma(int64(res.Days)))
	if res.Collapsed {
		fmt.Printf("The economy collapsed at tick %s.\n", humanize.Comma(int64(*res.CollapseTick)))
	}
	fmt.Printf("Final state: phase %s, %d employed, %d unemployed, wage %s, price %s, inventory %s units.\n",
		snap.Phase,
		snap.Headcount,
		snap.Unemployed,
		humanize.CommafWithDigits(snap.AverageWage, 2),
		humanize.CommafWithDigits(snap.Price, 2),
		humanize.CommafWithDigits(snap.Inventory, 1),
	)
	fmt.Printf("Average happiness %.2f, average wealth %s.\n",
		snap.AverageHappiness,
		humanize.CommafWithDigits(snap.AverageWealth, 2),
	)
}
