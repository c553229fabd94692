package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wchic_backend/internal/statussync"
	"wchic_backend/platform/cache"
	"wchic_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	defaultQueue     = "default"
	syncMaxRetry     = 5
	reconcileTimeout = 30 * time.Second
)

type Client struct {
	client    *asynq.Client
	queue     string
	syncDelay time.Duration
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client:    asynq.NewClient(opt),
		queue:     queueName(cfg),
		syncDelay: cfg.GetPodioSyncDelay(),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueLeadSync schedules a Podio sync of the lead after the configured
// delay. A sync already pending for the same lead absorbs the new request.
func (c *Client) EnqueueLeadSync(ctx context.Context, leadID uuid.UUID, reason string) error {
	if c == nil || c.client == nil {
		return errors.New("scheduler client not configured")
	}

	task, err := NewPodioSyncLeadTask(PodioSyncLeadPayload{LeadID: leadID.String(), Reason: reason})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.ProcessIn(c.syncDelay),
		asynq.MaxRetry(syncMaxRetry),
		asynq.TaskID(TaskPodioSyncLead+":"+leadID.String()),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueHookReconcile hands an inbound Podio item event to the worker.
func (c *Client) EnqueueHookReconcile(ctx context.Context, hook statussync.InboundHook) error {
	if c == nil || c.client == nil {
		return errors.New("scheduler client not configured")
	}

	task, err := NewPodioHookReconcileTask(hook)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(0),
		asynq.Timeout(reconcileTimeout),
	)
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return defaultQueue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := cache.ParseOptions(redisURL, tlsInsecure)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
