package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vitos/meme_trade_engine/internal/domain"
	"github.com/vitos/meme_trade_engine/internal/infrastructure/alert"
	"github.com/vitos/meme_trade_engine/internal/infrastructure/logger"
	"github.com/vitos/meme_trade_engine/internal/infrastructure/metrics"
	"github.com/vitos/meme_trade_engine/internal/infrastructure/oracle"
	"github.com/vitos/meme_trade_engine/internal/infrastructure/paper"
	"github.com/vitos/meme_trade_engine/internal/infrastructure/storage"
	"github.com/vitos/meme_trade_engine/internal/usecase"
	"github.com/vitos/meme_trade_engine/internal/web"
)

type Config struct {
	Engine usecase.Config `yaml:"engine"`
	Oracle struct {
		Mode         string `yaml:"mode"` // "paper" or "live"
		RESTEndpoint string `yaml:"rest_endpoint"`
		WSEndpoint   string `yaml:"ws_endpoint"`
		Seed         int64  `yaml:"seed"`
	} `yaml:"oracle"`
	Wallet struct {
		InitialCash float64 `yaml:"initial_cash"`
	} `yaml:"wallet"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
	Alerts struct {
		LogPath string `yaml:"log_path"`
	} `yaml:"alerts"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{Engine: usecase.DefaultConfig()}
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// Secrets (API keys for live mode) come from the environment.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var priceOracle domain.PriceOracle
	var signals domain.SignalSource
	var sentiment domain.SentimentSource

	switch cfg.Oracle.Mode {
	case "live":
		stream := oracle.NewDexStream(cfg.Oracle.RESTEndpoint, cfg.Oracle.WSEndpoint, log)
		if err := stream.Connect(ctx); err != nil {
			log.Fatal("Failed to connect price stream", zap.Error(err))
		}
		defer stream.Close()
		priceOracle = stream
		// Live signal and sentiment sources run as separate services
		// feeding this process; without them the engine only manages
		// existing positions.
		log.Warn("live mode has no in-process signal source, running manage-only")
	default:
		seed := cfg.Oracle.Seed
		if seed == 0 {
			seed = 42
		}
		walk := paper.NewRandomWalkOracle(seed)
		priceOracle = walk
		signals = paper.NewSignalGenerator(seed+1, walk)
		sentiment = paper.NewSentimentFeed(seed + 2)
		log.Info("running in paper mode", zap.Int64("seed", seed))
	}

	alertPath := cfg.Alerts.LogPath
	if alertPath == "" {
		alertPath = "alerts.log"
	}
	alertLogger, err := logger.NewFileLogger(alertPath, "info")
	if err != nil {
		log.Error("Failed to init alert logger, using default", zap.Error(err))
		alertLogger = log
	}
	alerter := alert.NewLogAlerter(alertLogger)

	wallet := paper.NewWallet(cfg.Wallet.InitialCash)

	engine := usecase.NewTradingEngine(
		cfg.Engine,
		signals,
		sentiment,
		priceOracle,
		wallet,
		paper.NewVenue(),
		store,
		alerter,
		log,
	)

	metricsHandler, err := metrics.Handler(engine)
	if err != nil {
		log.Fatal("Failed to init metrics", zap.Error(err))
	}

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	server := web.NewServer(port, engine, store, metricsHandler, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := engine.Run(ctx); err != nil {
			log.Error("Engine stopped with error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	engine.Stop()
	cancel()
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
