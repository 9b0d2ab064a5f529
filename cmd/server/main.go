package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Load .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/osrs-team-bingo/internal/auth"
	"github.com/iliyamo/osrs-team-bingo/internal/config"
	"github.com/iliyamo/osrs-team-bingo/internal/database"
	"github.com/iliyamo/osrs-team-bingo/internal/handler"
	"github.com/iliyamo/osrs-team-bingo/internal/queue"
	"github.com/iliyamo/osrs-team-bingo/internal/repository"
	"github.com/iliyamo/osrs-team-bingo/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()                    // Load environment config
	rlCfg := config.LoadRateLimitConfig()   // Token bucket settings for the plugin endpoint
	cacheCfg := config.LoadBoardCacheConfig() // Board response cache settings

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.CreateSchema(db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	rdb := config.NewRedisClient() // nil when Redis is unreachable; limiting and caching degrade to pass-through
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and board cache disabled")
	}

	teams := repository.NewTeamRepo(db)
	users := repository.NewUserRepo(db)
	keys := repository.NewPluginKeyRepo(db)
	squares := repository.NewSquareRepo(db)
	claims := repository.NewClaimRepo(db)
	events := repository.NewEventRepo(db)
	completions := repository.NewCompletionRepo(db)

	sessionResolver := &auth.SessionResolver{Secret: cfg.JWTSecret}
	pluginResolver := auth.NewPluginResolver(users, keys)

	joinH := handler.NewJoinHandler(cfg, db, teams, users, keys)
	boardH := handler.NewBoardHandler(squares, rdb, cacheCfg)
	claimH := handler.NewClaimHandler(squares, claims, rdb, cacheCfg)
	reviewH := handler.NewReviewHandler(db, users, claims, events, completions, rdb, cacheCfg)
	pluginH := handler.NewPluginHandler(db, pluginResolver, teams, users, squares, claims, events, completions, rdb, cacheCfg)
	adminH := handler.NewAdminHandler(cfg, teams)

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e)
	router.RegisterAuth(e, joinH)
	router.RegisterTeams(e, boardH, claimH, reviewH, sessionResolver, cacheCfg, rdb)
	router.RegisterPlugin(e, pluginH, rlCfg, rdb)
	router.RegisterAdmin(e, adminH)

	// Background consumer logging completions; runs its own reconnect loop.
	go func() {
		if err := queue.StartCompletionConsumer(); err != nil {
			log.Printf("completion consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
