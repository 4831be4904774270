package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"

	"videoInsight/chat"
	"videoInsight/config"
	"videoInsight/highlights"
	"videoInsight/pipeline"
	"videoInsight/providers"
	"videoInsight/scheduler"
	"videoInsight/server"
	"videoInsight/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment as-is")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var oa *openai.Client
	if cfg.HasValidAPI() {
		oaCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oaCfg.BaseURL = cfg.BaseURL
		}
		oa = openai.NewClientWithConfig(oaCfg)
	}

	var embedder providers.Embedder
	var asr providers.Transcriber
	var summarizer providers.Summarizer
	if oa != nil {
		embedder = providers.NewOpenAIEmbedder(oa, cfg.EmbeddingModel, cfg.EmbeddingDim)
		asr = providers.NewWhisperASR(oa, cfg.WhisperModel)
		summarizer = providers.NewOpenAISummarizer(oa, cfg.ChatModel)
	} else {
		log.Println("no API key configured, using local embedding, mock transcription and rule-based summaries")
		embedder = providers.HashEmbedder{}
		asr = providers.MockASR{}
		summarizer = providers.RuleSummarizer{}
	}

	ctx := context.Background()
	var gen providers.Generative
	switch {
	case cfg.HasGemini():
		g, err := providers.NewGeminiGenerative(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("init gemini: %v", err)
		}
		gen = g
	case oa != nil:
		gen = providers.NewOpenAIGenerative(oa, cfg.ChatModel)
	default:
		gen = providers.NoGenerative{}
	}
	log.Printf("generative backend: %s", gen.Name())

	videos := storage.VideoStore(storage.NewMemoryVideoStore())
	segments := storage.SegmentStore(storage.NewMemorySegmentStore())
	summaries := storage.SummaryStore(storage.NewMemorySummaryStore())
	chatStore := storage.ChatStore(storage.NewMemoryChatStore())
	index := storage.VectorIndex(storage.NewMemoryVectorIndex(embedder))

	switch strings.ToLower(cfg.Store) {
	case "pgvector":
		if !cfg.HasPostgres() {
			log.Fatal("store=pgvector requires POSTGRES_URL")
		}
		if err := storage.RunMigrations(cfg.PostgresURL); err != nil {
			log.Fatalf("run migrations: %v", err)
		}
		pool, err := storage.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		defer pool.Close()
		videos = storage.NewPgVideoStore(pool)
		segments = storage.NewPgSegmentStore(pool)
		summaries = storage.NewPgSummaryStore(pool)
		chatStore = storage.NewPgChatStore(pool)
		index = storage.NewPgVectorIndex(pool, embedder)
		log.Println("storage backend: pgvector")
	case "milvus":
		mi, err := storage.NewMilvusVectorIndex(ctx, cfg.MilvusAddr, cfg.MilvusCollection, embedder)
		if err != nil {
			log.Fatalf("init milvus: %v", err)
		}
		index = mi
		log.Println("storage backend: memory with milvus index")
	default:
		log.Println("storage backend: memory")
	}

	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Videos:     videos,
		Segments:   segments,
		Summaries:  summaries,
		Index:      index,
		Chat:       chatStore,
		ASR:        asr,
		Summarizer: summarizer,
		DataRoot:   cfg.DataRoot,
	}, pipeline.Options{Workers: cfg.Workers})
	orch.Start()

	engine := chat.NewEngine(index, gen, chatStore, segments)

	cleaner := &scheduler.Cleaner{
		Videos:        videos,
		Segments:      segments,
		Summaries:     summaries,
		Index:         index,
		Chat:          chatStore,
		DataRoot:      cfg.DataRoot,
		RetentionDays: cfg.RetentionDays,
	}
	cronJobs := cleaner.Start()

	srv := &server.Server{
		Orchestrator: orch,
		Engine:       engine,
		Segments:     segments,
		Summaries:    summaries,
		Renderer:     providers.FFmpegRenderer{},
		Scorer:       highlights.HeuristicScorer{},
	}

	cors := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(strings.Split(cfg.AllowedOrigins, ",")),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      cors(srv.Router()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	cronJobs.Stop()
	orch.Shutdown()
	log.Println("bye")
}
