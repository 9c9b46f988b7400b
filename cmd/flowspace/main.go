package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/oki-dokii/FlowSpaceE/internal/config"
	"github.com/oki-dokii/FlowSpaceE/internal/gormw"
	"github.com/oki-dokii/FlowSpaceE/internal/handlers/accounts"
	"github.com/oki-dokii/FlowSpaceE/internal/handlers/boards"
	"github.com/oki-dokii/FlowSpaceE/internal/handlers/invites"
	"github.com/oki-dokii/FlowSpaceE/internal/handlers/middleware"
	"github.com/oki-dokii/FlowSpaceE/internal/handlers/statisfiles"
	"github.com/oki-dokii/FlowSpaceE/internal/notify"
	"github.com/oki-dokii/FlowSpaceE/internal/realtime"
	"github.com/oki-dokii/FlowSpaceE/internal/storage"
)

var (
	configPath = flag.String("c", os.Getenv("CONFIG_PATH"), "Path to configuration file")
)

func main() {
	flag.Parse()
	if *configPath == "" {
		log.Fatal().Msg("Config path must be provided via CONFIG_PATH env var or -c flag")
	}

	// Load configuration
	cfg := config.LoadConfig(*configPath)

	// cron schedule
	scheduler, _ := gocron.NewScheduler()
	scheduler.Start()

	// Initialize database
	db, err := gormw.Open(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	storage.RegisterInviteExpirySweeper(scheduler, db)

	// Set up Gin router
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	auth := middleware.NewAuth(&cfg.Auth)
	hub := realtime.NewHub()
	mailer := notify.NewMailer(&cfg.Mail)

	// Registration and login stay outside the bearer gate.
	accounts.NewService(db, auth).RegisterHandlers(router.Group("/api"))

	api := router.Group("/api")
	api.Use(auth.Middleware())
	boards.NewService(db, hub).RegisterHandlers(api)
	invites.NewService(&cfg.Invites, db, mailer, hub).RegisterHandlers(api)

	statisfiles.RegisterHandlers(router.Group("/"))

	// Start server
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		// No read/write timeouts: board sockets are long-lived.
		ReadHeaderTimeout: time.Second * 15,
		IdleTimeout:       time.Second * 60,
		Handler:           router,
	}

	// Run our server in a goroutine so that it doesn't block.
	go func() {
		log.Printf("start server at %q", srv.Addr)
		if err := srv.ListenAndServe(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	c := make(chan os.Signal, 1)
	// We'll accept graceful shutdowns when quit via SIGINT (Ctrl+C)
	// SIGKILL, SIGQUIT or SIGTERM (Ctrl+/) will not be caught.
	signal.Notify(c, os.Interrupt)

	// Block until we receive our signal.
	<-c

	// Create a deadline to wait for.
	wait := time.Second * 15
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	// Doesn't block if no connections, but will otherwise wait
	// until the timeout deadline.
	srv.Shutdown(ctx)

	log.Info().Msg("shutting down")
	os.Exit(0)
}
