package cli

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sahayak/broadcast"
	"sahayak/classify"
	"sahayak/config"
	"sahayak/db"
	"sahayak/grievance"
	"sahayak/intake"
	"sahayak/knowledge"
	"sahayak/query"
	"sahayak/realtime"
	"sahayak/triage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the grievance backend until interrupted",
	Long: `Start the full backend: intake and triage services, the realtime
outbox dispatcher, and the SLA escalation sweeper. Runs until SIGINT or
SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.pool.Close()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return app.dispatcher.Run(ctx)
		})
		g.Go(func() error {
			return app.sweeper.Run(ctx)
		})

		log.Printf("sahayak serving: sweep every %s, dispatch every %s", cfg.SweepInterval, cfg.DispatchInterval)
		if err := g.Wait(); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

// app bundles the wired services so serve and one-shot commands share setup.
type app struct {
	pool       *pgxpool.Pool
	bus        *realtime.Bus
	dispatcher *realtime.Dispatcher
	sweeper    *triage.Sweeper
	intake     *intake.Service
	triage     *triage.Service
	query      *query.Service
	knowledge  *knowledge.Service
	broadcast  *broadcast.Service
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	var classifier classify.Classifier = classify.Disabled{}
	if cfg.OpenAI.APIKey != "" {
		classifier, err = classify.NewOpenAIClassifier(classify.Config{
			APIKey:        cfg.OpenAI.APIKey,
			BaseURL:       cfg.OpenAI.BaseURL,
			Model:         cfg.OpenAI.Model,
			Timeout:       cfg.OpenAI.Timeout,
			RatePerMinute: cfg.OpenAI.RatePerMinute,
		})
		if err != nil {
			pool.Close()
			return nil, err
		}
	} else {
		log.Printf("no openai api key configured, intake classification disabled")
	}

	windows := cfg.Windows()
	repo := grievance.NewRepository(pool)

	triageSvc := triage.NewService(pool, repo, nil, nil, windows)
	intakeSvc := intake.NewService(pool, repo, nil, nil, nil, classifier, windows)
	querySvc := query.NewService(query.NewRepository(pool), repo)
	knowledgeSvc := knowledge.NewService(knowledge.NewRepository(pool))
	broadcastSvc := broadcast.NewService(pool, broadcast.NewRepository(pool), nil)

	bus := realtime.NewBus()

	return &app{
		pool:       pool,
		bus:        bus,
		dispatcher: realtime.NewDispatcher(pool, bus, cfg.DispatchInterval),
		sweeper:    triage.NewSweeper(triageSvc, repo, cfg.SweepInterval),
		intake:     intakeSvc,
		triage:     triageSvc,
		query:      querySvc,
		knowledge:  knowledgeSvc,
		broadcast:  broadcastSvc,
	}, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
