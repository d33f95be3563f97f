package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/henzzito/pugbot/internal/auth"
	"github.com/henzzito/pugbot/internal/cache"
	"github.com/henzzito/pugbot/internal/commands"
	"github.com/henzzito/pugbot/internal/config"
	"github.com/henzzito/pugbot/internal/database"
	"github.com/henzzito/pugbot/internal/httpapi"
	"github.com/henzzito/pugbot/internal/match"
	"github.com/henzzito/pugbot/internal/twitch"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	ctx := context.Background()

	if err := auth.Init(); err != nil {
		log.Fatalf("auth init: %v", err)
	}

	pool, err := database.Connect(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	db := database.NewStore(pool)

	rdb, err := cache.Connect(ctx)
	if err != nil {
		logger.WithError(err).Warn("redis unavailable, leaderboard served from Postgres")
		rdb = nil
	}
	store := cache.NewMirroredStore(db, rdb, logger)

	optionsPath := os.Getenv("OPTIONS_PATH")
	if optionsPath == "" {
		optionsPath = "options.json"
	}
	cfg, err := config.NewStore(optionsPath)
	if err != nil {
		log.Fatalf("options: %v", err)
	}

	feed := httpapi.NewLiveFeed()

	var chat *twitch.Client
	announcer := match.AnnouncerFunc(func(text string) {
		chat.Say(text)
		feed.Say(text)
	})

	orch := match.New(store, announcer, cfg.Current, logger, nil)
	disp := commands.NewDispatcher(orch, store, announcer, logger)

	chat = twitch.New(logger, func(channel, username string, privileged bool, text string) {
		disp.OnChatMessage(ctx, channel, username, privileged, text)
	})

	if err := orch.RecoverStartup(ctx); err != nil {
		logger.WithError(err).Warn("startup recovery")
	}

	if channel := cfg.Current().BottedChannel; channel != "" {
		if err := chat.Start(channel); err != nil {
			log.Fatalf("twitch: %v", err)
		}
	} else {
		logger.Warn("no botted channel configured, chat stays offline until options are set")
	}

	srv := &httpapi.Server{
		Log:       logger,
		DB:        db,
		Config:    cfg,
		Orch:      orch,
		Transport: chat,
		Feed:      feed,
	}

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
