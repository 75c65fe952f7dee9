package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/andresuchdata/premium-allocation/internal/allocation"
	"github.com/andresuchdata/premium-allocation/internal/app"
	"github.com/andresuchdata/premium-allocation/internal/churn"
	"github.com/andresuchdata/premium-allocation/internal/config"
	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/andresuchdata/premium-allocation/internal/metrics"
	"github.com/andresuchdata/premium-allocation/pkg/logger"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func allocationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "data-dir",
			Usage: "Directory holding the raw tables (defaults to DATA_DIR)",
		},
		&cli.Float64Flag{
			Name:  "target",
			Usage: "Total premium increase to allocate (defaults to SIMULATION_TARGET)",
		},
		&cli.StringFlag{
			Name:  "policy",
			Usage: "Allocation policy: manual, exposure, risk or equal",
			Value: string(domain.PolicyExposure),
		},
		&cli.StringSliceFlag{
			Name:  "amount",
			Usage: "Manual amount as region=value, repeatable; switches the policy to manual",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print JSON instead of tables",
		},
	}
}

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	cliApp := &cli.App{
		Name:  "simulate",
		Usage: "Allocate a premium increase across regions and simulate customer churn",
		Commands: []*cli.Command{
			{
				Name:   "allocate",
				Usage:  "Compute the per-region allocation of the target",
				Flags:  allocationFlags(),
				Action: runAllocate,
			},
			{
				Name:   "metrics",
				Usage:  "Compute the financial metrics of an allocation",
				Flags:  allocationFlags(),
				Action: runMetrics,
			},
			{
				Name:  "simulate",
				Usage: "Run the churn simulation for an allocation",
				Flags: append(allocationFlags(),
					&cli.Uint64Flag{
						Name:  "seed",
						Usage: "Random seed (defaults to SIMULATION_SEED)",
					},
					&cli.IntFlag{
						Name:  "runs",
						Usage: "Number of consecutive seeds to run as a batch",
						Value: 1,
					},
				),
				Action: runSimulate,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("simulate failed")
	}
}

type run struct {
	cfg     *config.Config
	dataset *domain.Dataset
	result  allocation.Result
	policy  domain.Policy
}

// prepare loads the dataset and computes the allocation requested on the command line.
func prepare(c *cli.Context) (*run, error) {
	cfg := *config.Load()
	if d := c.String("data-dir"); d != "" {
		cfg.Data.Source = config.SourceLocal
		cfg.Data.Dir = d
	}
	target := cfg.Simulation.Target
	if c.IsSet("target") {
		target = c.Float64("target")
	}

	ds, _, err := app.LoadDataset(c.Context, &cfg)
	if err != nil {
		return nil, err
	}

	edits, err := parseAmounts(c.StringSlice("amount"))
	if err != nil {
		return nil, err
	}

	policy, err := domain.ParsePolicy(c.String("policy"))
	if err != nil {
		return nil, err
	}
	if len(edits) > 0 {
		policy = domain.PolicyManual
	}

	res, err := allocation.Allocate(policy, target, ds)
	if err != nil {
		return nil, err
	}
	if len(edits) > 0 {
		res.Allocation, err = allocation.ApplyEdits(res.Allocation, edits)
		if err != nil {
			return nil, err
		}
		res.Warnings = allocation.Check(res.Allocation)
	}

	return &run{cfg: &cfg, dataset: ds, result: res, policy: policy}, nil
}

// parseAmounts reads region=value pairs.
func parseAmounts(raw []string) ([]domain.AllocationEdit, error) {
	edits := make([]domain.AllocationEdit, 0, len(raw))
	for _, entry := range raw {
		region, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("%w: amount %q is not region=value", domain.ErrInvalidInput, entry)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: amount %q: %v", domain.ErrInvalidInput, entry, err)
		}
		edits = append(edits, domain.AllocationEdit{RegionID: strings.TrimSpace(region), Amount: amount})
	}
	return edits, nil
}

func runAllocate(c *cli.Context) error {
	r, err := prepare(c)
	if err != nil {
		return err
	}
	view := domain.NewAllocationView(r.policy, r.result.Allocation, r.result.Warnings)
	if c.Bool("json") {
		return writeJSON(c.App.Writer, view)
	}
	return writeAllocation(c.App.Writer, r.dataset, view)
}

func runMetrics(c *cli.Context) error {
	r, err := prepare(c)
	if err != nil {
		return err
	}
	report := metrics.Compute(r.dataset, r.result.Allocation)
	if c.Bool("json") {
		return writeJSON(c.App.Writer, report)
	}
	return writeMetrics(c.App.Writer, report)
}

func runSimulate(c *cli.Context) error {
	r, err := prepare(c)
	if err != nil {
		return err
	}
	if !r.result.Allocation.Valid() {
		return fmt.Errorf("%w: allocated %.2f of %.2f", domain.ErrAllocationMismatch,
			r.result.Allocation.Total(), r.result.Allocation.Target)
	}

	seed := r.cfg.Simulation.Seed
	if c.IsSet("seed") {
		seed = c.Uint64("seed")
	}
	params := r.cfg.Simulation.Params

	if runs := c.Int("runs"); runs > 1 {
		batch, err := churn.RunBatch(c.Context, r.dataset, r.result.Allocation, params,
			churn.Seeds(seed, runs), r.cfg.Simulation.BatchWorkers)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return writeJSON(c.App.Writer, batch)
		}
		return writeBatch(c.App.Writer, batch)
	}

	res, err := churn.Simulate(r.dataset, r.result.Allocation, params, seed)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, res)
	}
	return writeSimulation(c.App.Writer, res)
}
