// Worker consumes analytics events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, ANALYTICS_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"otp-session-auth/internal/config"
	"otp-session-auth/internal/logger"
	"otp-session-auth/internal/telemetry/loki"
	"otp-session-auth/internal/telemetry/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger.Setup(cfg.LogLevel, false)

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal().Msg("worker: KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal().Msg("worker: LOKI_URL is required")
	}

	reader := worker.NewReader(brokers, cfg.AnalyticsKafkaTopic, cfg.KafkaGroupID)
	defer reader.Close()
	pusher := loki.NewClient(cfg.LokiURL, &http.Client{Timeout: 15 * time.Second})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("topic", cfg.AnalyticsKafkaTopic).
		Str("group", cfg.KafkaGroupID).
		Str("loki", cfg.LokiURL).
		Msg("worker: consuming")

	worker.Run(ctx, reader, pusher)
}
