package bootstrap

import (
	"log"

	"nana-be/internal/config"
	"nana-be/internal/controller"
	"nana-be/internal/pkg/logger"
	"nana-be/internal/repository/memory"
	"nana-be/internal/service"
	"nana-be/pkg/debuglog"
	"nana-be/pkg/llm/factory"
	"nana-be/pkg/prompt"
	"nana-be/pkg/workerpool"

	pktNats "nana-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	HealthController controller.IHealthController
	UploadController controller.IUploadController
	NotesController  controller.INotesController
	DebugController  controller.IDebugController
	APIKeyController controller.IAPIKeyController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	usageLogger logger.ILogger
	pubSub      *gochannel.GoChannel
	natsPub     *pktNats.Publisher
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Loggers
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	usageLogger := logger.NewIsolatedLogger(cfg.App.UsageLogFilePath)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// NATS forwarding is optional
	var natsPub *pktNats.Publisher
	var forwarder service.EventForwarder
	if cfg.Events.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.Events.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			natsPub = pub
			forwarder = pub
		}
	}

	publisherService := service.NewPublisherService(cfg.Events.UsageTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Events.UsageTopic,
		usageLogger,
		sysLogger,
		forwarder,
	)

	// 3. AI infrastructure
	baseURL := cfg.Ai.GeminiBaseURL
	if cfg.Ai.LLMProvider == "ollama" {
		baseURL = cfg.Ai.OllamaBaseURL
	}
	providers := factory.NewProviderFactory(cfg.Ai.LLMProvider, cfg.Ai.GeminiModel, baseURL, cfg.Ai.GeminiTimeout)
	if _, err := providers(cfg.Keys.GoogleGemini); err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.GeminiModel)

	// Debug transcripts, one lock per session file
	sessionLocks := memory.NewLockRepository()
	var recorder debuglog.Recorder = debuglog.NopRecorder{}
	if fileRecorder, err := debuglog.NewFileRecorder(cfg.App.DebugLogDir, sysLogger, sessionLocks); err != nil {
		log.Printf("[WARN] Debug logging disabled: %v", err)
	} else {
		recorder = fileRecorder
	}

	prompts := prompt.NewLoader(cfg.App.PromptsDir)
	pool := workerpool.New(cfg.Ai.WorkerPoolSize)

	deps := service.AIDeps{
		Providers: providers,
		Recorder:  recorder,
		Publisher: publisherService,
		Logger:    sysLogger,
		Model:     cfg.Ai.GeminiModel,
	}

	// 4. Services
	uploadService := service.NewUploadService(deps, prompts, pool, int64(cfg.MaxUploadBytes()))
	notesService := service.NewNotesService(deps, prompts)
	inlineCommandService := service.NewInlineCommandService(deps, prompts)
	emphasisService := service.NewEmphasisService(deps, prompts)
	debugService := service.NewDebugService(recorder, publisherService, sysLogger)
	apiKeyService := service.NewAPIKeyService(providers, cfg.Ai.GeminiModel, sysLogger)

	// 5. Controllers
	return &Container{
		HealthController: controller.NewHealthController(),
		UploadController: controller.NewUploadController(uploadService, cfg.HeartbeatInterval(), sysLogger),
		NotesController:  controller.NewNotesController(notesService, inlineCommandService, emphasisService),
		DebugController:  controller.NewDebugController(debugService),
		APIKeyController: controller.NewAPIKeyController(apiKeyService),

		ConsumerService: consumerService,
		Logger:          sysLogger,

		usageLogger: usageLogger,
		pubSub:      pubSub,
		natsPub:     natsPub,
	}
}

// Close releases the event bus and flushes both loggers.
func (c *Container) Close() {
	if err := c.pubSub.Close(); err != nil {
		log.Printf("[WARN] Failed to close event bus: %v", err)
	}
	c.natsPub.Close()
	_ = c.usageLogger.Sync()
	_ = c.Logger.Sync()
}
