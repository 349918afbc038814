package worker

import (
	"context"
	"time"

	"app/internal/config"
	"app/internal/queue"

	"github.com/rs/zerolog"
)

// Consumer is the slice of the queue client the run loop needs.
type Consumer interface {
	ReadWithPoll(ctx context.Context, queueName string, visibilityTimeoutSec, pollTimeoutSec, maxMsg int) ([]*queue.Message, error)
	Send(ctx context.Context, queueName string, payload []byte) error
	Delete(ctx context.Context, queueName string, msgIDs []int64) error
}

// Run is the consumer loop. It polls the job queue, dispatches each message
// through the processor's handler table and acknowledges handled messages.
// A handler error leaves the message for redelivery until the read count
// exceeds the configured maximum, at which point it moves to the dead-letter
// queue. The loop itself never dies on a handler error.
func Run(ctx context.Context, cfg *config.Config, client Consumer, proc *Processor, logger zerolog.Logger) error {
	handlers := proc.Handlers()
	logger.Info().Str("queue", cfg.JobQueueName).Msg("Starting worker")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down worker")
			return nil
		default:
		}

		msgs, err := client.ReadWithPoll(ctx, cfg.JobQueueName, cfg.JobVisibilityTimeoutSec, cfg.JobPollTimeoutSec, cfg.JobPollMaxMsg)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error().Err(err).Msg("Error reading job queue")
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			env, err := queue.Decode(msg.Data)
			if err != nil {
				// Unknown or malformed jobs can never succeed; drop them.
				logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Dropping undecodable job")
				if err := client.Delete(ctx, cfg.JobQueueName, []int64{msg.ID}); err != nil {
					logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error deleting undecodable job")
				}
				continue
			}

			logger.Info().Int64("msg_id", msg.ID).Str("job", string(env.Job)).Msg("Received job")

			if err := handlers[env.Job](ctx, env.Payload); err != nil {
				logger.Error().Err(err).
					Int64("msg_id", msg.ID).
					Str("job", string(env.Job)).
					Int("read_count", msg.ReadCount).
					Msg("Job handler failed")

				if msg.ReadCount >= cfg.JobMaxReadCount {
					if err := client.Send(ctx, cfg.JobDeadLetterQueueName, msg.Data); err != nil {
						logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error moving job to dead-letter queue")
						continue
					}
					if err := client.Delete(ctx, cfg.JobQueueName, []int64{msg.ID}); err != nil {
						logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error deleting job after dead-lettering")
					}
					logger.Warn().Int64("msg_id", msg.ID).Str("job", string(env.Job)).Msg("Job moved to dead-letter queue")
				}
				// Otherwise leave the message; it becomes visible again when
				// the visibility timeout lapses.
				continue
			}

			if err := client.Delete(ctx, cfg.JobQueueName, []int64{msg.ID}); err != nil {
				logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error acknowledging job")
			}
		}
	}
}
