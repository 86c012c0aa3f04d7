package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"llmcouncil/internal/cache"
	"llmcouncil/internal/model"
)

// communityCategory labels topics that arrive from live debates rather than
// the seeded board.
const communityCategory = "Community"

// TrendingWorker consumes debate completion records and bumps the question's
// popularity counter. Losing a record costs one trending vote at most, so
// decode failures are dropped rather than requeued.
type TrendingWorker struct {
	conn      *amqp.Connection
	trending  *cache.TrendingCache
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTrendingWorker(conn *amqp.Connection, trending *cache.TrendingCache, queueName string, logger *zap.Logger) *TrendingWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrendingWorker{
		conn:      conn,
		trending:  trending,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *TrendingWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var record model.CompletionRecord
				if err := json.Unmarshal(d.Body, &record); err != nil {
					w.logger.Warn("decode completion record failed", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}

				if err := w.trending.Bump(workerCtx, record.Question, communityCategory); err != nil {
					w.logger.Warn("bump trending topic failed",
						zap.String("topic", record.Question),
						zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *TrendingWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
