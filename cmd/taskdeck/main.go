package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"taskdeck/internal/api"
	"taskdeck/internal/bot"
	"taskdeck/internal/config"
	"taskdeck/internal/service"
	"taskdeck/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Println("[info] no .env file, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := session.NewDB(cfg.SessionDB)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	sessions := session.NewStore(db)
	apiClient := api.New(cfg.APIBaseURL, cfg.HTTPTimeout)
	digestSvc := service.NewDigestService()

	telegramBot, err := bot.New(apiClient, sessions, digestSvc, &cfg)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	digestJob := func() {
		jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := telegramBot.SendDueDigests(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("digest: %v", err)
		}
	}
	switch {
	case cfg.DigestTime != "":
		if _, err := scheduler.ScheduleDaily(cfg.DigestTime, digestJob); err != nil {
			log.Fatalf("schedule daily digests: %v", err)
		}
	case cfg.DigestInterval > 0:
		if _, err := scheduler.ScheduleInterval(cfg.DigestInterval, digestJob); err != nil {
			log.Fatalf("schedule digests: %v", err)
		}
	}
	if cfg.DigestTime != "" || cfg.DigestInterval > 0 {
		scheduler.Start()
		defer scheduler.Stop()
	}

	log.Println("taskdeck bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
