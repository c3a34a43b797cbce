package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	mid "github.com/fitgraph/backend/internal/server/middleware"
	"github.com/fitgraph/backend/internal/util"
	"github.com/fitgraph/backend/pkg/ai"
	oai "github.com/fitgraph/backend/pkg/ai/ollama"
	gai "github.com/fitgraph/backend/pkg/ai/openai"
	"github.com/fitgraph/backend/pkg/contextpack"
	"github.com/fitgraph/backend/pkg/fit"
	"github.com/fitgraph/backend/pkg/graph"
	"github.com/fitgraph/backend/pkg/logger"
	"github.com/fitgraph/backend/pkg/pipeline"
	"github.com/fitgraph/backend/pkg/session"
	"github.com/fitgraph/backend/pkg/store"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func buildAIClients() (ai.VisionExtractor, ai.TextGenerator) {
	switch util.GetEnv("AI_ADAPTER") {
	case "ollama":
		client, err := oai.NewClient(oai.NewClientParams{
			VisionModel:           util.GetEnvString("AI_VISION_MODEL", "qwen2.5vl:7b"),
			TextModel:             util.GetEnvString("AI_TEXT_MODEL", "qwen3:4b"),
			BaseURL:               util.GetEnv("AI_BASE_URL"),
			MaxConcurrentRequests: int64(util.GetEnvInt("AI_PARALLEL_REQ", 1)),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client, client
	case "openai":
		client := gai.NewClient(gai.NewClientParams{
			Model:   util.GetEnvString("AI_TEXT_MODEL", "gpt-4o-mini"),
			BaseURL: util.GetEnv("AI_BASE_URL"),
			APIKey:  util.GetEnv("AI_API_KEY"),
		})
		// The OpenAI adapter only polishes text; vision stays unavailable.
		return ai.NullVisionExtractor{}, client
	default:
		return ai.NullVisionExtractor{}, ai.NullTextGenerator{}
	}
}

func loadReferenceData(configDir string) ([]fit.Archetype, []fit.Archetype, []contextpack.Rule, []contextpack.SeedClient) {
	career, err := fit.LoadArchetypes(filepath.Join(configDir, "career_archetypes.yaml"))
	if err != nil {
		logger.Fatal("Failed to load career archetypes", "err", err)
	}
	business, err := fit.LoadArchetypes(filepath.Join(configDir, "business_archetypes.yaml"))
	if err != nil {
		logger.Fatal("Failed to load business archetypes", "err", err)
	}
	rules, err := contextpack.LoadRules(filepath.Join(configDir, "rules.yaml"))
	if err != nil {
		logger.Fatal("Failed to load recommendation rules", "err", err)
	}
	seeds, err := contextpack.LoadSeedClients(filepath.Join(configDir, "clients_seed.json"))
	if err != nil {
		logger.Fatal("Failed to load seed clients", "err", err)
	}
	return career, business, rules, seeds
}

func Init() {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(util.GetEnvString("DATA_DIR", "data/store"))
	if err != nil {
		logger.Fatal("Failed to initialize store", "err", err)
	}

	career, business, rules, seeds := loadReferenceData(util.GetEnvString("CONFIG_DIR", "data"))
	vision, textGen := buildAIClients()

	svc := pipeline.NewService(pipeline.Params{
		Store:              st,
		Graphs:             graph.NewManager(st),
		Vision:             vision,
		TextGen:            textGen,
		CareerArchetypes:   career,
		BusinessArchetypes: business,
		Rules:              rules,
		Seeds:              seeds,
	})

	sessionTTL := time.Duration(util.GetEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute
	app := &mid.App{
		Service:  svc,
		Sessions: session.NewRegistry(sessionTTL),
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
