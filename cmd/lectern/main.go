// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command lectern starts the course-materials RAG API server.
//
// The server answers questions against an indexed corpus of course
// transcripts, driving a tool-calling model through bounded rounds of
// search and outline lookups.
//
// Usage:
//
//	go run ./cmd/lectern
//	go run ./cmd/lectern -config config.yaml -port 9090
//
// With Ollama instead of Anthropic:
//
//	LECTERN_PROVIDER=ollama LECTERN_MODEL=llama3.1 go run ./cmd/lectern
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8000/v1/health
//
//	# Ask a question
//	curl -X POST http://localhost:8000/v1/query \
//	  -H "Content-Type: application/json" \
//	  -d '{"query": "What does lesson 2 of the MCP course cover?"}'
//
//	# Course statistics
//	curl http://localhost:8000/v1/courses | jq
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/LecternAI/Lectern/services/api"
	"github.com/LecternAI/Lectern/services/config"
	"github.com/LecternAI/Lectern/services/ingest"
	"github.com/LecternAI/Lectern/services/llm"
	"github.com/LecternAI/Lectern/services/rag"
	"github.com/LecternAI/Lectern/services/session"
	"github.com/LecternAI/Lectern/services/vectorstore"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	// Local development keeps secrets in .env; absence is fine.
	_ = godotenv.Load()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagation so inbound traceparent headers flow
	// through handlers and the query pipeline spans.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	shutdownTracing := setupTracing(cfg.Telemetry.StdoutTraces)
	defer shutdownTracing()

	ctx := context.Background()

	store, err := buildStore(ctx, cfg.Store)
	if err != nil {
		slog.Error("Failed to connect course index", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sessions, sessionDB, err := buildSessions(cfg.Session)
	if err != nil {
		slog.Error("Failed to open session store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	client, err := llm.NewClient(llm.Provider(cfg.Provider.Name), cfg.Provider.Model, cfg.Provider.BaseURL)
	if err != nil {
		slog.Error("Failed to create model client",
			slog.String("provider", cfg.Provider.Name), slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Model provider connected",
		slog.String("provider", cfg.Provider.Name),
		slog.String("model", cfg.Provider.Model))

	system, err := rag.NewSystemWithConfig(client, store, sessions, rag.GeneratorConfig{
		MaxRounds:   cfg.Generator.MaxRounds,
		MaxTokens:   cfg.Generator.MaxTokens,
		Temperature: cfg.Generator.Temperature,
	})
	if err != nil {
		slog.Error("Failed to assemble query pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Startup ingestion, then optionally keep watching for new docs.
	if cfg.Ingest.DocsDir != "" {
		loader := ingest.NewLoader(store, ingest.NewProcessor(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap))
		if _, statErr := os.Stat(cfg.Ingest.DocsDir); statErr == nil {
			courses, chunks, loadErr := loader.AddCourseFolder(ctx, cfg.Ingest.DocsDir, false)
			if loadErr != nil {
				slog.Warn("Initial document load failed",
					slog.String("dir", cfg.Ingest.DocsDir), slog.String("error", loadErr.Error()))
			} else {
				slog.Info("Initial documents loaded",
					slog.Int("courses", courses), slog.Int("chunks", chunks))
			}
		} else {
			slog.Warn("Docs folder missing, skipping initial load",
				slog.String("dir", cfg.Ingest.DocsDir))
		}
		if cfg.Ingest.Watch {
			go func() {
				if err := loader.Watch(ctx, cfg.Ingest.DocsDir); err != nil && ctx.Err() == nil {
					slog.Warn("Document watcher stopped", slog.String("error", err.Error()))
				}
			}()
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("lectern"))
	if *debug {
		router.Use(gin.Logger())
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	api.RegisterRoutes(v1, api.NewHandlers(system))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("Shutting down Lectern server")
		if sessionDB != nil {
			if err := sessionDB.Close(); err != nil {
				slog.Warn("Failed to close session store", slog.String("error", err.Error()))
			}
		}
		shutdownTracing()
		os.Exit(0)
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	slog.Info("Starting Lectern server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildStore connects the configured course index backend.
func buildStore(ctx context.Context, cfg config.StoreConfig) (vectorstore.Store, error) {
	switch cfg.Backend {
	case "memory":
		slog.Info("Using in-memory course index")
		return vectorstore.NewMemoryStore(), nil
	case "weaviate":
		store, err := vectorstore.NewWeaviateStore(ctx, vectorstore.WeaviateConfig{
			Host:   cfg.Host,
			Scheme: cfg.Scheme,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("Weaviate course index connected", slog.String("host", cfg.Host))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// buildSessions opens the configured session backend. The returned DB
// is non-nil only for the badger backend; the caller owns closing it.
func buildSessions(cfg config.SessionConfig) (session.Manager, *badger.DB, error) {
	switch cfg.Backend {
	case "memory":
		return session.NewMemoryManager(cfg.MaxExchanges), nil, nil
	case "badger":
		opts := badger.DefaultOptions(cfg.Dir).WithLogger(nil)
		db, err := badger.Open(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("opening session store at %s: %w", cfg.Dir, err)
		}
		slog.Info("Session store opened", slog.String("dir", cfg.Dir))
		return session.NewBadgerManager(db, cfg.TTL, cfg.MaxExchanges), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

// setupTracing installs the tracer provider. The stdout exporter is for
// development; without it spans stay in-process only.
func setupTracing(stdoutTraces bool) func() {
	if !stdoutTraces {
		return func() {}
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		slog.Warn("Failed to create trace exporter", slog.String("error", err.Error()))
		return func() {}
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Warn("Trace provider shutdown failed", slog.String("error", err.Error()))
		}
	}
}
