// Package main runs the liftlog MCP server over stdio (for local MCP clients).
// The same tools are also mounted on the main backend at /mcp over HTTP,
// so you can use either: stdio (this cmd) or the backend URL.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/2beens/liftlog/internal"
	"github.com/2beens/liftlog/internal/config"
	"github.com/2beens/liftlog/internal/db"
	"github.com/2beens/liftlog/internal/logging"
	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/workouts/logs"
	workoutsMCP "github.com/2beens/liftlog/internal/workouts/mcp"
	"github.com/2beens/liftlog/internal/workouts/pipeline"

	"github.com/go-redis/redis/v8"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	userID := flag.String("user", "", "user id whose training logs are served")
	inMemory := flag.Bool("mem", false, "serve an empty in-memory log store instead of postgres")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// stdout carries the protocol
	logging.Setup(logging.LoggerSetupParams{
		LogFileName: strings.TrimSuffix(cfg.LogsPath, ".log") + "-mcp.log",
		LogLevel:    cfg.LogLevel,
		Environment: cfg.Environment,
	})

	if *userID == "" {
		log.Fatalln("user id not set, use -user")
	}

	trainingProgram, err := internal.LoadProgram(cfg.ProgramPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var source pipeline.SnapshotSource
	if *inMemory {
		log.Warnln("serving an in-memory log store")
		source = logs.NewMemStore()
	} else {
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:     cfg.PostgresHost,
			DBPort:     cfg.PostgresPort,
			DBName:     cfg.PostgresDBName,
			DBUser:     os.Getenv("LIFTLOG_POSTGRES_USER"),
			DBPassword: os.Getenv("LIFTLOG_POSTGRES_PASS"),
		})
		if err != nil {
			log.Fatalf("db pool: %v", err)
		}
		defer dbPool.Close()

		rdb := redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: os.Getenv("LIFTLOG_REDIS_PASS"),
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Errorf("close redis client: %s", err)
			}
		}()

		// read only, nothing is published from here
		source = logs.NewSubscriber(rdb, logs.NewRepo(dbPool, nil))
	}

	hub := pipeline.NewHub(ctx, trainingProgram, source, metrics.NewManager("liftlog", "mcp", prometheus.NewRegistry()))
	defer hub.Close()

	server := workoutsMCP.NewServer(workoutsMCP.NewContextService(trainingProgram, hub, nil), *userID)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Errorf("mcp server: %s", err)
	}
}
