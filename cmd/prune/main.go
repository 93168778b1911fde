// Command prune trims every user's dismissal ledger down to the configured
// keep limit, bounded by the DISMISSED_* run limits.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/DavidGamba/go-getoptions"
	"github.com/anonto42/nano-midea/notifyfeed/internal/maintenance"
	"github.com/anonto42/nano-midea/notifyfeed/internal/repositories"
	"github.com/anonto42/nano-midea/notifyfeed/internal/services"
	"github.com/anonto42/nano-midea/notifyfeed/pkg/config"
)

type commandLineOptionValues struct {
	EnvFile string
	History int
}

func parseCommandLine() *commandLineOptionValues {
	optionValues := &commandLineOptionValues{}
	opt := getoptions.New()

	opt.Bool("help", false, opt.Alias("h", "?"))
	opt.StringVar(&optionValues.EnvFile, "env-file", ".env",
		opt.Description("the path to an optional .env file"))
	opt.IntVar(&optionValues.History, "history", 0,
		opt.Description("print the N most recent stored runs before pruning"))

	_, err := opt.Parse(os.Args[1:])
	if opt.Called("help") {
		fmt.Fprint(os.Stderr, opt.Help())
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		fmt.Fprint(os.Stderr, opt.Help(getoptions.HelpSynopsis))
		os.Exit(1)
	}
	return optionValues
}

func main() {
	optionValues := parseCommandLine()

	cfg, err := config.Load(optionValues.EnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	log := config.InitLogger(cfg)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	sinks := maintenance.MultiSink{maintenance.LogSink{Log: log}}
	if db.Mongo != nil {
		runs := repositories.NewMongoPruneRunRepository(db.Mongo.Database(cfg.MongoDatabase))
		sinks = append(sinks, maintenance.StoreSink{Runs: runs, KeepLimit: cfg.Prune.KeepLimit})

		if optionValues.History > 0 {
			previous, err := runs.GetRecentPruneRuns(context.Background(), int64(optionValues.History))
			if err != nil {
				log.WithError(err).Warn("unable to load prune history")
			}
			for _, run := range previous {
				fmt.Printf("%s users_scanned=%d users_pruned=%d rows_deleted=%d elapsed_ms=%d stop_reason=%s\n",
					run.StartedAt.Format(time.RFC3339), run.UsersScanned, run.UsersPruned, run.RowsDeleted,
					run.ElapsedMillis, run.StopReason)
			}
		}
	}

	dismissalRepo := repositories.NewPostgresDismissalRepository(db.Postgres)
	dismissals := services.NewDismissalService(dismissalRepo, services.WithBackgroundPrune(false, services.PruneOptions{}))
	pruner := maintenance.NewPruner(dismissalRepo, dismissals, cfg.Prune)

	// The elapsed bound is checked between users; the deadline is a backstop
	// for a single slow statement.
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Prune.MaxElapsedSeconds)*time.Second*2)
	defer cancel()

	report, runErr := pruner.Run(ctx)
	if err := sinks.Record(context.Background(), report); err != nil {
		log.WithError(err).Warn("unable to record prune report")
	}

	fmt.Printf("pruned dismissed notifications: users_scanned=%d users_pruned=%d rows_deleted=%d elapsed=%s stop_reason=%s\n",
		report.UsersScanned, report.UsersPruned, report.RowsDeleted, report.Elapsed.Round(time.Millisecond), report.StopReason)

	if runErr != nil {
		log.WithError(runErr).Error("prune run aborted")
		db.CloseDB()
		os.Exit(1)
	}
}
