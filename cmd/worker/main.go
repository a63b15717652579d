package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"casethread/internal/docstore"
	"casethread/internal/pipeline"
	"casethread/internal/queue"
	"casethread/internal/storage"
	"casethread/internal/util"
	"casethread/pkg/ai"
	oai "casethread/pkg/ai/ollama"
	gai "casethread/pkg/ai/openai"
	"casethread/pkg/extract"
	"casethread/pkg/graphdb"
	"casethread/pkg/logger"
	"casethread/pkg/logger/console"
	"casethread/pkg/parse"
	"casethread/pkg/scrape"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// AI client
	adapter := util.GetEnv("AI_ADAPTER")
	var aiClient ai.Client

	switch adapter {
	case "ollama":
		client, err := oai.NewClient(oai.NewClientParams{
			CompletionModel: util.GetEnv("AI_CHAT_MODEL"),
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		aiClient = client
	default:
		aiClient = gai.NewClient(gai.NewClientParams{
			CompletionModel: util.GetEnv("AI_CHAT_MODEL"),
			EmbeddingModel:  util.GetEnv("AI_EMBED_MODEL"),

			ChatURL:      util.GetEnv("AI_CHAT_URL"),
			ChatKey:      util.GetEnv("AI_CHAT_KEY"),
			EmbeddingURL: util.GetEnv("AI_EMBED_URL"),
			EmbeddingKey: util.GetEnv("AI_EMBED_KEY"),
		})
	}

	// MongoDB document store
	store, err := docstore.NewStore(ctx, docstore.StoreParams{
		URI:      util.GetEnv("MONGODB_URI"),
		Database: util.GetEnvString("MONGODB_DATABASE", "casethread"),
	})
	if err != nil {
		logger.Fatal("Could not connect to MongoDB", "err", err)
	}
	defer store.Close(context.Background())

	// Neo4j graph
	graph, err := graphdb.NewClient(ctx, graphdb.ClientParams{
		URI:      util.GetEnv("NEO4J_URI"),
		Username: util.GetEnv("NEO4J_USER"),
		Password: util.GetEnv("NEO4J_PASSWORD"),
		Database: util.GetEnvString("NEO4J_DATABASE", "neo4j"),
	})
	if err != nil {
		logger.Fatal("Could not connect to Neo4j", "err", err)
	}
	defer graph.Close(context.Background())

	if err := graph.EnsureSchema(ctx); err != nil {
		logger.Fatal("Could not ensure graph schema", "err", err)
	}

	// Text artifacts
	texts, err := storage.NewTextStore(util.GetEnvString("TEXT_DIR", "./case_docs"))
	if err != nil {
		logger.Fatal("Could not create text store", "err", err)
	}

	// Pipeline stages
	scraper := scrape.NewScraper(scrape.ScraperParams{
		RenderJS: util.GetEnvBool("SCRAPE_RENDER_JS", true),
	})
	parser := parse.NewClient(parse.ClientParams{
		BaseURL: util.GetEnvString("PARSE_SERVICE_URL", "https://api.cloud.llamaindex.ai"),
		APIKey:  util.GetEnv("PARSE_SERVICE_KEY"),
	})
	extractor, err := extract.NewExtractor(extract.ExtractorParams{
		Client:    aiClient,
		Model:     util.GetEnv("AI_CHAT_MODEL"),
		MaxTokens: int(util.GetEnvNumeric("AI_MAX_INPUT_TOKENS", 100000)),
	})
	if err != nil {
		logger.Fatal("Could not create extractor", "err", err)
	}
	ingestor := graphdb.NewIngestor(graphdb.IngestorParams{
		Client:         graph,
		Embedder:       aiClient,
		ReconcileTypes: util.GetEnvBool("GRAPH_RECONCILE_ENTITY_TYPES", false),
	})

	orchestrator := pipeline.NewOrchestrator(pipeline.OrchestratorParams{
		Store:     store,
		Scraper:   scraper,
		Parser:    parser,
		Extractor: extractor,
		Ingestor:  ingestor,
		Artifacts: texts,
	})

	batchLimit := int(util.GetEnvNumeric("PIPELINE_BATCH_LIMIT", 10))
	runAll := func() {
		for _, docType := range []string{docstore.TypeLink, docstore.TypeFile} {
			if _, err := orchestrator.RunBatch(ctx, docType, batchLimit); err != nil {
				logger.Error("Batch run failed", "type", docType, "err", err)
			}
		}
		metrics := aiClient.GetMetrics()
		logger.Info(
			"AI Metrics",
			"input_tokens", metrics.InputTokens,
			"output_tokens", metrics.OutputTokens,
			"total_tokens", metrics.TotalTokens,
			"duration_ms", metrics.DurationMs,
		)
		aiClient.ResetMetrics()
	}

	// RabbitMQ manual trigger
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.IngestQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.IngestQueue,
		fmt.Sprintf("%s_consumer", queue.IngestQueue),
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.IngestQueue, "err", err)
	}

	interval := time.Duration(util.GetEnvNumeric("PIPELINE_INTERVAL_SECONDS", 300)) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Worker started", "interval", interval.String(), "batch_limit", batchLimit)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case <-ticker.C:
			logger.Info("Scheduled ingestion run")
			runAll()
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed")
				return
			}
			logger.Info("Manual ingestion run requested")

			var req queue.RunRequest
			if err := json.Unmarshal(msg.Body, &req); err != nil {
				logger.Error("Invalid run request", "err", err)
				handleProcessingError(consumerCh, msg, queue.IngestQueue)
				continue
			}

			limit := req.Limit
			if limit <= 0 {
				limit = batchLimit
			}
			// An invalid type falls back to running both kinds.
			if req.DocumentType == docstore.TypeLink || req.DocumentType == docstore.TypeFile {
				if _, err := orchestrator.RunBatch(ctx, req.DocumentType, limit); err != nil {
					logger.Error("Manual batch run failed", "type", req.DocumentType, "err", err)
					handleProcessingError(consumerCh, msg, queue.IngestQueue)
					continue
				}
			} else {
				runAll()
			}

			if err := msg.Ack(false); err != nil {
				logger.Error("Failed to ack message", "err", err)
			}
		}
	}
}

// handleProcessingError bounces a failed message through the retry
// queue until it has been retried 10 times, then parks it in the DLQ.
func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	if retries >= 10 {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = int32(retries + 1)

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
