package main

import (
	"context"
	"log"

	"github.com/mymmrac/telego"

	"rewards-bot/internal/bot"
	"rewards-bot/internal/cache"
	"rewards-bot/internal/config"
	"rewards-bot/internal/database"
	"rewards-bot/internal/engine"
	"rewards-bot/internal/session"
	"rewards-bot/internal/store"
	"rewards-bot/internal/worker"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}

	rdb, err := database.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Could not connect to redis: %v", err)
	}

	tgBot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		log.Fatalf("Could not create bot: %v", err)
	}
	me, err := tgBot.GetMe(context.Background())
	if err != nil {
		log.Fatalf("Could not fetch bot identity: %v", err)
	}

	accounts := store.NewAccounts(db)
	ledger := store.NewLedger(db)
	members := cache.NewMembership(rdb, cfg.MemberCacheTTL)
	tasks := cache.NewTasks(rdb)
	sessions := session.NewManager(cfg.SessionTimeout)
	telegram := bot.NewTelegram(tgBot)

	eng := engine.New(cfg, me.Username, accounts, ledger, members, tasks, telegram, telegram, sessions)

	sweeper := worker.NewSweeper(sessions, ledger, rdb, tgBot, cfg.AdminIDs)
	go sweeper.Start(context.Background())

	log.Printf("Service started as @%s", me.Username)

	bot.NewBot(tgBot, eng, sessions, cfg).Start()
}
