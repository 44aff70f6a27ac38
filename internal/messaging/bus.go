// Package messaging adapts the message-bus pull/retry pattern into RPC
// request/reply semantics (spec.md §6): two durable request queues, each
// request carrying a correlation_id and a reply_to, with the response
// published back to reply_to under the same correlation_id.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/resonanse/recommender/internal/config"
)

// queueDepth and processingLatency cover SPEC_FULL.md §4.9's RPC queue
// depth/processing-latency metrics: depth tracks in-flight tasks against
// the prefetch semaphore, latency covers one handle() call end to end.
var (
	queueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "messaging_rpc_queue_depth",
		Help: "Number of RPC tasks currently admitted past the prefetch semaphore, per queue.",
	}, []string{"queue"})
	processingLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "messaging_rpc_processing_latency_seconds",
		Help:    "Time to handle one RPC message, from admission to reply (or drop).",
		Buckets: prometheus.DefBuckets,
	}, []string{"queue"})
)

func init() {
	for _, collector := range []prometheus.Collector{queueDepth, processingLatency} {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}

// RecommendByUserRequest is the body of recommendations.requests.by_user.
type RecommendByUserRequest struct {
	UserID *int64 `json:"user_id" validate:"required"`
}

// SetUserDescriptionRequest is the body of
// resonanse_api.requests.set_user_description.
type SetUserDescriptionRequest struct {
	UserID      int64  `json:"user_id" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// envelope carries the RPC correlation fields alongside the raw body, the
// same way the original request/reply headers did.
type envelope struct {
	CorrelationID string          `json:"correlation_id"`
	ReplyTo       string          `json:"reply_to"`
	Body          json.RawMessage `json:"body"`
}

// Handlers is the set of callbacks the app wires in; the bus never knows
// about the recommender's business logic.
type Handlers struct {
	RecommendByUser    func(ctx context.Context, userID int64) (any, error)
	SetUserDescription func(ctx context.Context, userID int64, description string) (any, error)
}

type Bus struct {
	recommendReader    *kafka.Reader
	setDescriptionReader *kafka.Reader
	replyWriter        *kafka.Writer
	validator          *validator.Validate
	semaphore          chan struct{}
	logger             *logrus.Logger
}

func New(cfg *config.Config, logger *logrus.Logger) *Bus {
	return &Bus{
		recommendReader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Bus.Brokers,
			Topic:          cfg.Bus.RecommendByUserQueue,
			GroupID:        cfg.Bus.ConsumerGroup,
			MinBytes:       1e3,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
			StartOffset:    kafka.LastOffset,
		}),
		setDescriptionReader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Bus.Brokers,
			Topic:          cfg.Bus.SetUserDescriptionQueue,
			GroupID:        cfg.Bus.ConsumerGroup,
			MinBytes:       1e3,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
			StartOffset:    kafka.LastOffset,
		}),
		replyWriter: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Bus.Brokers...),
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		validator: validator.New(),
		semaphore: make(chan struct{}, cfg.Bus.PrefetchLimit),
		logger:    logger,
	}
}

// Run consumes both request queues until ctx is cancelled. Admission is
// bounded by the prefetch-sized semaphore: a task processes one message to
// completion before the reader's next ReadMessage is allowed to proceed
// beyond the prefetch window (spec.md §5).
func (b *Bus) Run(ctx context.Context, handlers Handlers) error {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		b.consumeLoop(ctx, "recommend_by_user", b.recommendReader, func(ctx context.Context, body json.RawMessage) (any, bool) {
			return b.handleRecommendByUser(ctx, body, handlers.RecommendByUser)
		})
	}()

	go func() {
		defer wg.Done()
		b.consumeLoop(ctx, "set_user_description", b.setDescriptionReader, func(ctx context.Context, body json.RawMessage) (any, bool) {
			return b.handleSetUserDescription(ctx, body, handlers.SetUserDescription)
		})
	}()

	wg.Wait()
	return ctx.Err()
}

func (b *Bus) consumeLoop(ctx context.Context, queue string, reader *kafka.Reader, handle func(context.Context, json.RawMessage) (any, bool)) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		message, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.WithError(err).Error("failed to read message from bus")
			continue
		}

		var env envelope
		if err := json.Unmarshal(message.Value, &env); err != nil {
			b.logger.WithError(err).Warn("dropping malformed message: not a valid envelope")
			continue
		}

		if env.ReplyTo == "" {
			b.logger.Warn("dropping message with no reply_to")
			continue
		}

		b.semaphore <- struct{}{}
		queueDepth.WithLabelValues(queue).Set(float64(len(b.semaphore)))
		go func(env envelope) {
			start := time.Now()
			defer func() {
				<-b.semaphore
				queueDepth.WithLabelValues(queue).Set(float64(len(b.semaphore)))
				processingLatency.WithLabelValues(queue).Observe(time.Since(start).Seconds())
			}()

			taskCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			response, ok := handle(taskCtx, env.Body)
			if !ok {
				return
			}

			if err := b.publishReply(ctx, env.ReplyTo, env.CorrelationID, response); err != nil {
				b.logger.WithError(err).WithField("correlation_id", env.CorrelationID).Error("failed to publish reply")
			}
		}(env)
	}
}

func (b *Bus) handleRecommendByUser(ctx context.Context, body json.RawMessage, handler func(context.Context, int64) (any, error)) (any, bool) {
	var req RecommendByUserRequest
	if err := json.Unmarshal(body, &req); err != nil {
		b.logger.WithError(err).Warn("dropping malformed recommend-by-user request")
		return nil, false
	}
	if err := b.validator.Struct(req); err != nil {
		b.logger.WithError(err).Warn("dropping recommend-by-user request missing user_id")
		return nil, false
	}

	response, err := handler(ctx, *req.UserID)
	if err != nil {
		b.logger.WithError(err).WithField("user_id", *req.UserID).Warn("recommend-by-user failed, replying with empty list")
		return []any{}, true
	}
	return response, true
}

func (b *Bus) handleSetUserDescription(ctx context.Context, body json.RawMessage, handler func(context.Context, int64, string) (any, error)) (any, bool) {
	var req SetUserDescriptionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		b.logger.WithError(err).Warn("dropping malformed set-user-description request")
		return nil, false
	}
	if err := b.validator.Struct(req); err != nil {
		b.logger.WithError(err).Warn("dropping set-user-description request missing required fields")
		return nil, false
	}

	response, err := handler(ctx, req.UserID, req.Description)
	if err != nil {
		b.logger.WithError(err).WithField("user_id", req.UserID).Warn("set-user-description failed")
		return map[string]bool{"status": false}, true
	}
	return response, true
}

func (b *Bus) publishReply(ctx context.Context, replyTo, correlationID string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal reply body: %w", err)
	}

	reply := envelope{CorrelationID: correlationID, Body: body}
	replyBytes, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply envelope: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return b.replyWriter.WriteMessages(publishCtx, kafka.Message{
		Topic: replyTo,
		Key:   []byte(correlationID),
		Value: replyBytes,
		Headers: []kafka.Header{
			{Key: "correlation_id", Value: []byte(correlationID)},
		},
	})
}

func (b *Bus) Close() error {
	var errs []error

	if err := b.recommendReader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close recommend-by-user reader: %w", err))
	}
	if err := b.setDescriptionReader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close set-user-description reader: %w", err))
	}
	if err := b.replyWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close reply writer: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing message bus: %v", errs)
	}
	return nil
}
