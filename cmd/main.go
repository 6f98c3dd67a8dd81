package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"belief-interview/handler"
	"belief-interview/internal/integrations/openai"
	"belief-interview/internal/integrations/paramstore"
	"belief-interview/internal/repository"
	"belief-interview/internal/usecase"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	port := envString("PORT", "8080")
	dataDir := envString("DATA_DIR", "./data")
	backend := envString("STORE_BACKEND", "file")
	baseURL := envString("OPENAI_BASE_URL", "https://api.openai.com/v1")
	model := envString("OPENAI_MODEL", "gpt-4o-mini")
	apiKey := os.Getenv("OPENAI_API_KEY")
	paramPrefix := os.Getenv("PARAM_PREFIX")
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	generatorTimeout := envDuration("GENERATOR_TIMEOUT_SECONDS", 30*time.Second)
	generatorRetries := envInt("GENERATOR_RETRIES", 1)
	maxMessageLen := envInt("MAX_MESSAGE_LENGTH", 4000)
	thresholds := usecase.Thresholds{
		ExploreMinSubstantive:   envInt("EXPLORE_MIN_SUBSTANTIVE", 0),
		ExploreMinTurns:         envInt("EXPLORE_MIN_TURNS", 0),
		ExploreMinMinimal:       envInt("EXPLORE_MIN_MINIMAL", 0),
		ExploreMinimalTurns:     envInt("EXPLORE_MINIMAL_TURNS", 0),
		ElaborateMaxExhaustion:  envInt("ELABORATE_MAX_EXHAUSTION", 0),
		ElaborateMaxMinimal:     envInt("ELABORATE_MAX_MINIMAL", 0),
		ElaborateMaxTurns:       envInt("ELABORATE_MAX_TURNS", 0),
		ElaborateMinSubstantive: envInt("ELABORATE_MIN_SUBSTANTIVE", 0),
		RecapMaxExhaustion:      envInt("RECAP_MAX_EXHAUSTION", 0),
		RecapMaxMinimal:         envInt("RECAP_MAX_MINIMAL", 0),
		RecapTopicTurns:         envInt("RECAP_TOPIC_TURNS", 0),
		RecapTopicExhaustion:    envInt("RECAP_TOPIC_EXHAUSTION", 0),
	}

	// ---- AWS SDK config (only when a component needs it) ----
	var awsCfg *aws.Config
	loadAWS := func() aws.Config {
		if awsCfg == nil {
			cfg, err := config.LoadDefaultConfig(ctx)
			if err != nil {
				slog.Error("failed to load AWS config", "err", err)
				os.Exit(1)
			}
			awsCfg = &cfg
		}
		return *awsCfg
	}

	// ---- Store ----
	var store interface {
		usecase.Store
		usecase.ParticipantWriter
	}
	switch backend {
	case "file":
		fs, err := repository.NewFileStore(dataDir)
		if err != nil {
			slog.Error("failed to create file store", "dir", dataDir, "err", err)
			os.Exit(1)
		}
		store = fs
	case "dynamodb":
		ds, err := repository.NewDynamoStore(awsdynamodb.NewFromConfig(loadAWS()), mustEnv("STATE_TABLE"))
		if err != nil {
			slog.Error("failed to create dynamodb store", "err", err)
			os.Exit(1)
		}
		store = ds
	default:
		slog.Error("unknown store backend", "backend", backend)
		os.Exit(1)
	}

	// ---- Reply generator ----
	var gen usecase.ReplyGenerator
	switch {
	case apiKey != "" || paramPrefix != "":
		opts := []openai.Option{openai.WithBaseURL(baseURL), openai.WithModel(model), openai.WithAPIKey(apiKey)}
		if apiKey == "" {
			ssmClient, err := paramstore.New(awsssm.NewFromConfig(loadAWS()))
			if err != nil {
				slog.Error("failed to create SSM client", "err", err)
				os.Exit(1)
			}
			opts = append(opts, openai.WithTokenSource(ssmClient, paramPrefix))
		}
		client, err := openai.NewClient(opts...)
		if err != nil {
			slog.Error("failed to create OpenAI client", "err", err)
			os.Exit(1)
		}
		gen = client
	default:
		slog.Warn("no generator credentials configured; replies will come from the fallback pool")
		gen = openai.Offline{}
	}

	// ---- Usecases ----
	director, err := usecase.NewDirector(store, gen,
		usecase.WithThresholds(thresholds),
		usecase.WithGeneratorTimeout(generatorTimeout),
		usecase.WithGeneratorRetries(generatorRetries),
		usecase.WithMaxMessageLength(maxMessageLen),
		usecase.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to create director", "err", err)
		os.Exit(1)
	}
	surveys, err := usecase.NewSurveyService(store)
	if err != nil {
		slog.Error("failed to create survey service", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(director, surveys, handler.WithLogger(logger), handler.WithAllowedOrigins(allowedOrigins))
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		lambda.Start(h.Handle)
		return
	}
	serve(h, ":"+port)
}

func serve(h http.Handler, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("graceful shutdown failed", "err", err)
		}
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring invalid integer environment variable", "key", key, "value", v)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	n := envInt(key, 0)
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
