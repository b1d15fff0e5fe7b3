package bootstrap

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rachit-keshari-2003312/third-eye-project/internal/config"
	"github.com/rachit-keshari-2003312/third-eye-project/internal/controller"
	"github.com/rachit-keshari-2003312/third-eye-project/internal/pkg/logger"
	"github.com/rachit-keshari-2003312/third-eye-project/internal/service"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent/answer"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent/executor"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent/memory"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent/schema"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent/sqlgen"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/agent/tables"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/llm/factory"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/redash"
)

type Container struct {
	// Controllers
	AgentController controller.IAgentController

	// Exposed for graceful shutdown
	SysLogger logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	agentLogger := initAgentLogger()

	// 2. Redash Client
	redashClient := redash.NewClient(cfg.Redash.BaseURL, cfg.Redash.APIKey)

	// 3. LLM Provider based on Config
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.HuggingFace,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Pipeline Components
	schemaProvider := schema.NewCachedProvider(
		schema.NewRedashProvider(redashClient),
		cfg.Agent.SchemaCacheTTL,
	)
	selector := tables.NewSelector(llmProvider, agentLogger)
	generator := sqlgen.NewGenerator(llmProvider, agentLogger)
	runner := executor.New(
		redashClient,
		executor.PollPolicy{
			Interval: cfg.Redash.PollInterval,
			MaxWait:  cfg.Redash.PollMaxWait,
		},
		cfg.Agent.ResultCacheTTL,
		agentLogger,
	)
	synthesizer := answer.NewSynthesizer(llmProvider, agentLogger)
	conversations := memory.New(cfg.Agent.MaxHistory)

	biAgent := agent.New(agent.Deps{
		Lister:              redashClient,
		Schemas:             schemaProvider,
		Selector:            selector,
		Generator:           generator,
		Runner:              runner,
		Synthesizer:         synthesizer,
		Memory:              conversations,
		DefaultDataSourceID: cfg.Redash.DefaultDataSourceID,
		Logger:              agentLogger,
	})

	// 5. Services & Controllers
	agentService := service.NewAgentService(biAgent, sysLogger)

	return &Container{
		AgentController: controller.NewAgentController(agentService),
		SysLogger:       sysLogger,
	}
}

func initAgentLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "agent.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[AGENT] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
