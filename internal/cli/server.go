package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"trivia-party-service/internal/app"
	"trivia-party-service/internal/config"
	"trivia-party-service/internal/domain"
	"trivia-party-service/internal/infra/memory"
	pgbank "trivia-party-service/internal/infra/postgres"
	redisinfra "trivia-party-service/internal/infra/redis"
	transport "trivia-party-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleQuestions())
	if pool != nil {
		loader = pgbank.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var bank app.BankSource
	if redisClient != nil {
		bank = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		bank = memory.NewBankRepository(loader, bankTTL)
	}

	retention := config.TTLDuration(cfg.Game.RoomRetention, time.Hour)
	registry := app.NewRegistry(bank, cfg.GameSettings(), retention)
	if redisClient != nil {
		registry.SetMarker(redisinfra.NewRoomMarker(redisClient, redisTTL))
	}

	hub := transport.NewHub()
	leadIn := config.TTLDuration(cfg.Game.LeadIn, 3*time.Second)
	reveal := config.TTLDuration(cfg.Game.RevealDelay, 5*time.Second)
	orch := app.NewOrchestrator(registry, hub, leadIn, reveal)

	reclaimCtx, stopReclaim := context.WithCancel(ctx)
	defer stopReclaim()
	reclaimInterval := config.TTLDuration(cfg.Game.ReclaimInterval, time.Hour)
	go registry.RunReclaim(reclaimCtx, reclaimInterval)

	wsHandler := transport.NewWSHandler(orch, hub)
	adminHandler := transport.NewAdminHandler(registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	adminHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	stopReclaim()
	orch.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions provides a small built-in pool; configure Postgres to
// serve real content.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:           "q1",
			Prompt:       "What is the capital of France?",
			Options:      []string{"Berlin", "Paris", "Madrid", "Rome"},
			CorrectIndex: 1,
			Difficulty:   domain.DifficultyEasy,
			Category:     "Geography",
		},
		{
			ID:           "q2",
			Prompt:       "Which planet is known as the Red Planet?",
			Options:      []string{"Venus", "Jupiter", "Mars", "Saturn"},
			CorrectIndex: 2,
			Difficulty:   domain.DifficultyEasy,
			Category:     "Science",
		},
		{
			ID:           "q3",
			Prompt:       "In which year did the Berlin Wall fall?",
			Options:      []string{"1987", "1989", "1991", "1993"},
			CorrectIndex: 1,
			Difficulty:   domain.DifficultyMedium,
			Category:     "History",
		},
		{
			ID:           "q4",
			Prompt:       "What is the chemical symbol for gold?",
			Options:      []string{"Go", "Gd", "Au", "Ag"},
			CorrectIndex: 2,
			Difficulty:   domain.DifficultyEasy,
			Category:     "Science",
		},
		{
			ID:           "q5",
			Prompt:       "Who wrote 'One Hundred Years of Solitude'?",
			Options:      []string{"Jorge Luis Borges", "Gabriel Garcia Marquez", "Mario Vargas Llosa", "Pablo Neruda"},
			CorrectIndex: 1,
			Difficulty:   domain.DifficultyMedium,
			Category:     "Literature",
		},
		{
			ID:           "q6",
			Prompt:       "Which data structure uses LIFO ordering?",
			Options:      []string{"Queue", "Stack", "Heap", "Graph"},
			CorrectIndex: 1,
			Difficulty:   domain.DifficultyEasy,
			Category:     "Technology",
		},
		{
			ID:           "q7",
			Prompt:       "What is the smallest prime number greater than 100?",
			Options:      []string{"101", "103", "107", "109"},
			CorrectIndex: 0,
			Difficulty:   domain.DifficultyMedium,
			Category:     "Mathematics",
		},
		{
			ID:           "q8",
			Prompt:       "Which country hosted the 1936 Summer Olympics?",
			Options:      []string{"Italy", "France", "Germany", "United Kingdom"},
			CorrectIndex: 2,
			Difficulty:   domain.DifficultyHard,
			Category:     "History",
		},
		{
			ID:           "q9",
			Prompt:       "What is the longest river in Asia?",
			Options:      []string{"Mekong", "Yangtze", "Ganges", "Yellow River"},
			CorrectIndex: 1,
			Difficulty:   domain.DifficultyMedium,
			Category:     "Geography",
		},
		{
			ID:           "q10",
			Prompt:       "Which composer became deaf later in life yet kept composing?",
			Options:      []string{"Mozart", "Bach", "Beethoven", "Chopin"},
			CorrectIndex: 2,
			Difficulty:   domain.DifficultyEasy,
			Category:     "Music",
		},
		{
			ID:           "q11",
			Prompt:       "What does 'HTTP' stand for?",
			Options:      []string{"HyperText Transfer Protocol", "High Throughput Transfer Process", "HyperText Transmission Program", "Host Transfer Text Protocol"},
			CorrectIndex: 0,
			Difficulty:   domain.DifficultyEasy,
			Category:     "Technology",
		},
		{
			ID:           "q12",
			Prompt:       "Which element has the atomic number 92?",
			Options:      []string{"Plutonium", "Uranium", "Thorium", "Radium"},
			CorrectIndex: 1,
			Difficulty:   domain.DifficultyHard,
			Category:     "Science",
		},
	}
}
