package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/mechworks/workshop-api/internal/auth"
	"github.com/mechworks/workshop-api/internal/config"
	"github.com/mechworks/workshop-api/internal/database"
	"github.com/mechworks/workshop-api/internal/handler"
	"github.com/mechworks/workshop-api/internal/queue"
	"github.com/mechworks/workshop-api/internal/repository"
	"github.com/mechworks/workshop-api/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable

	customers := repository.NewCustomerRepo(db)
	mechanics := repository.NewMechanicRepo(db)
	parts := repository.NewPartRepo(db)
	tickets := repository.NewTicketRepo(db)

	resolver := auth.NewResolver(mechanics, customers)
	stack := router.NewStack(cfg, rlCfg, cacheCfg, resolver, rdb)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterCustomers(e, handler.NewCustomerHandler(cfg, customers, tickets), stack)
	router.RegisterMechanics(e, handler.NewMechanicHandler(cfg, mechanics), stack)
	router.RegisterInventory(e, handler.NewInventoryHandler(parts), stack)
	router.RegisterTickets(e, handler.NewTicketHandler(tickets, customers), stack)

	// Ticket event consumer runs for the lifetime of the process and
	// reconnects on its own when the broker drops.
	go func() {
		if err := queue.StartTicketConsumer(); err != nil {
			log.Printf("ticket consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
