package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/akolanti/DocAssist/internal/chat"
	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/data/store"
	"github.com/akolanti/DocAssist/internal/document"
	"github.com/akolanti/DocAssist/internal/handlers"
	"github.com/akolanti/DocAssist/internal/mcpserver"
	"github.com/akolanti/DocAssist/internal/middleware"
	"github.com/akolanti/DocAssist/internal/notify"
	"github.com/akolanti/DocAssist/internal/rag"
	"github.com/akolanti/DocAssist/internal/rag/ingest"
	"github.com/akolanti/DocAssist/internal/rag/llm"
	"github.com/akolanti/DocAssist/internal/rag/llm/gemini"
	"github.com/akolanti/DocAssist/internal/rag/llm/gpt"
	"github.com/akolanti/DocAssist/internal/rag/resolver"
	"github.com/akolanti/DocAssist/internal/rag/search"
	"github.com/akolanti/DocAssist/internal/server"
	"github.com/akolanti/DocAssist/internal/worker"
	"github.com/akolanti/DocAssist/pkg/logger_i"
)

const issuedTokenTTL = 30 * 24 * time.Hour

var (
	listenAddr string
	configPath string
	issueToken string
)

func main() {
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides the config file")
	flag.StringVar(&configPath, "config", "docassist.yaml", "path to the YAML config file")
	flag.StringVar(&issueToken, "issue-token", "", "print a signed access token for this subject and exit")
	flag.Parse()

	cfg, cfgErr := config.Load(configPath)
	logger_i.Init(cfg.LogLevel, cfg.LogJSON)
	logger := logger_i.NewLogger("main")
	if cfgErr != nil {
		logger.Error("could not load configuration", "error", cfgErr)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	if issueToken != "" {
		if cfg.Auth.JWTSecret == "" {
			logger.Error("issuing a token needs a JWT secret")
			os.Exit(1)
		}
		token, err := middleware.IssueToken(issueToken, []byte(cfg.Auth.JWTSecret), issuedTokenTTL)
		if err != nil {
			logger.Error("could not sign token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//storage
	bus := notify.NewBus()
	storage := store.Open(serviceContext, store.Options{
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
		DisableRedis:  cfg.Storage.DisableRedis,
		DataDir:       cfg.Storage.DataDir,
	}, bus)
	storage.Start(serviceContext)
	status := storage.Status()
	logger.Info("storage ready", "backend", status.Backend, "location", status.Location, "degraded", status.Degraded)

	//init worker pool
	pool := worker.NewPool(worker.DefaultOptions())
	pool.Start()

	//search index
	extractor := ingest.NewExtractor()
	index := search.NewIndex(extractor)
	if indexed, err := index.Rebuild(serviceContext, storage); err != nil {
		logger.Error("could not list documents for the index", "error", err)
	} else {
		logger.Info("search index rebuilt", "documents", indexed)
	}
	stopFollow := index.Follow(bus, storage)

	provider := newProvider(serviceContext, cfg, logger)

	uploader, err := newUploader(serviceContext, cfg)
	if err != nil {
		logger.Error("upload backend unavailable, simulating uploads", "backend", cfg.Upload.Backend, "error", err)
		uploader = document.NewSimulatedUploader()
	}

	manager := document.NewManager(document.Dependencies{
		Store:      storage,
		Uploader:   uploader,
		Extractor:  extractor,
		Summarizer: provider,
		Indexer:    index,
		Scheduler:  pool,
	})
	if _, err := manager.Resume(serviceContext); err != nil {
		logger.Error("could not resume documents", "error", err)
	}

	conversations := chat.NewStore(storage)
	contextResolver := resolver.New(storage, index)
	ragService := rag.NewService(conversations, contextResolver, storage, index, provider)

	handler := handlers.NewHandler(handlers.Dependencies{
		Conversations: conversations,
		Documents:     manager,
		Chat:          ragService,
		Index:         index,
		Preferences:   storage,
		Bus:           bus,

		AllowAnyOrigin: cfg.Auth.Token != "" || cfg.Auth.JWTSecret != "",
	})
	mcp := mcpserver.New(mcpserver.Dependencies{
		Index:         index,
		Conversations: conversations,
		Resolver:      contextResolver,
		Documents:     manager,
	})
	router := server.NewRouter(handler, middleware.New(middleware.Options{
		Token:     cfg.Auth.Token,
		JWTSecret: cfg.Auth.JWTSecret,
	}), mcp.Handler())
	srv := server.New(cfg.ListenAddr, router)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	go srv.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		CloseServices: func() {
			handler.Close()
			stopFollow()
			if n := manager.CancelAll(); n > 0 {
				logger.Warn("cancelled running pipelines", "count", n)
			}
			pool.Stop()
			closeExternalServices()
			if err := storage.Close(); err != nil {
				logger.Error("closing storage", "error", err)
			}
			bus.Close()
		},
	})
	go srv.Start()

	<-stopExecution
	logger.Info("Server stopped")
}

// newProvider picks the configured model. Without credentials the offline
// provider serves and chat answers come from the fallback.
func newProvider(ctx context.Context, cfg config.Config, logger *logger_i.Logger) llm.Provider {
	var completer llm.Completer
	switch strings.ToLower(cfg.LLM.Provider) {
	case "gemini":
		if cfg.LLM.GeminiAPIKey == "" {
			break
		}
		client, err := gemini.NewClient(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel)
		if err != nil {
			logger.Error("gemini client unavailable", "error", err)
			break
		}
		completer = client
	case "openai", "gpt":
		if cfg.LLM.OpenAIAPIKey == "" {
			break
		}
		client, err := gpt.NewClient(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIModel)
		if err != nil {
			logger.Error("openai client unavailable", "error", err)
			break
		}
		completer = client
	case "offline":
	default:
		logger.Warn("unknown llm provider", "provider", cfg.LLM.Provider)
	}

	if completer == nil {
		logger.Warn("no language model configured, running offline")
		return llm.WithFallback(llm.NewOffline())
	}
	logger.Info("language model ready", "provider", completer.Name())
	return llm.WithFallback(llm.NewProvider(completer))
}

func newUploader(ctx context.Context, cfg config.Config) (document.Uploader, error) {
	switch strings.ToLower(cfg.Upload.Backend) {
	case "", "simulated":
		return document.NewSimulatedUploader(), nil
	case "http":
		if cfg.Upload.EndpointURL == "" {
			return nil, errors.New("upload endpoint url is not set")
		}
		return document.NewHTTPUploader(cfg.Upload.EndpointURL), nil
	case "s3":
		uploader, err := document.NewS3Uploader(ctx, document.S3Options{
			Bucket:    cfg.Upload.S3Bucket,
			Region:    cfg.Upload.S3Region,
			Endpoint:  cfg.Upload.S3Endpoint,
			AccessKey: cfg.Upload.S3AccessKey,
			SecretKey: cfg.Upload.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return uploader, nil
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.Upload.Backend)
	}
}
