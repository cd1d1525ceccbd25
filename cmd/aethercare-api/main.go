package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/aethercare/internal/analysis"
	"github.com/Lllllllleong/aethercare/internal/auth"
	"github.com/Lllllllleong/aethercare/internal/config"
	"github.com/Lllllllleong/aethercare/internal/gcp"
	"github.com/Lllllllleong/aethercare/internal/handler"
	"github.com/Lllllllleong/aethercare/internal/logger"
	"github.com/Lllllllleong/aethercare/internal/middleware"
	"github.com/Lllllllleong/aethercare/internal/report"
	"github.com/Lllllllleong/aethercare/internal/store"
	"github.com/gin-gonic/gin"
)

var (
	router  http.Handler
	once    sync.Once
	initErr error
)

func init() {
	// "AetherCareAPI" is the entry point name configured in GCP.
	functions.HTTP("AetherCareAPI", handleRequest)
}

// main runs the function locally; in GCP the framework calls handleRequest directly.
func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.Start(port); err != nil {
		slog.Error("Function framework exited", "error", err)
		os.Exit(1)
	}
}

func handleRequest(w http.ResponseWriter, r *http.Request) {
	// Use sync.Once for one-time initialization of clients.
	once.Do(func() {
		router, initErr = newRouter(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	router.ServeHTTP(w, r)
}

func newRouter(ctx context.Context) (http.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	gin.SetMode(gin.ReleaseMode)

	objects, err := gcp.NewObjectStore(ctx, cfg.StorageBucket)
	if err != nil {
		return nil, err
	}
	fsClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID, cfg.FirestoreDatabase)
	if err != nil {
		return nil, err
	}
	patients := store.NewPatientStore(fsClient, store.Collections{
		Patients: cfg.PatientsCollection,
		Users:    cfg.UsersCollection,
		Reports:  cfg.ReportsCollection,
	})

	deps := report.Deps{
		Store:    objects,
		Profiles: patients,
		Reports:  patients,
	}
	if cfg.ImageAnalysisEnabled() {
		deps.Images = analysis.NewHuggingFaceClient(cfg.HuggingFaceAPIKey, cfg.HuggingFaceModelURL, nil)
	} else {
		slog.Warn("HUGGINGFACE_API_KEY not set; image analysis disabled.")
	}
	if cfg.SummarizationEnabled() {
		summarizer, err := newSummarizer(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.Summarizer = summarizer
		deps.SummarizerName = cfg.SummarizerBackend
	} else {
		slog.Warn("Summarizer not configured; document summaries disabled.", "backend", cfg.SummarizerBackend)
	}

	pipeline := report.NewPipeline(deps, report.Options{
		PathPrefix:         cfg.ReportPathPrefix,
		PollAttempts:       cfg.ExistencePollAttempts,
		PollDelay:          cfg.ExistencePollDelay,
		AICallTimeout:      cfg.AICallTimeout,
		MetadataWriteFatal: cfg.MetadataWriteFatal,
	})

	slog.Info("AetherCare API initialized.",
		"bucket", objects.Bucket(),
		"summarizer", cfg.SummarizerBackend,
		"imageAnalysis", cfg.ImageAnalysisEnabled(),
	)
	return handler.NewRouter(handler.RouterDeps{
		Verifier:    auth.NewFirebaseVerifier(cfg.AuthProjectID, cfg.AuthCertsURL, nil),
		Generator:   pipeline,
		History:     patients,
		Profiles:    patients,
		Wallets:     patients,
		Accounts:    patients,
		RateLimiter: middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
	}), nil
}

func newSummarizer(ctx context.Context, cfg *config.Config) (report.Summarizer, error) {
	switch cfg.SummarizerBackend {
	case "vertex":
		client, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.VertexModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
		}
		return analysis.NewVertexSummarizer(client), nil
	default:
		return analysis.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel, nil), nil
	}
}
