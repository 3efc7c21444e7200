package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/lifelink/donor-api/internal/email"
	"github.com/lifelink/donor-api/internal/model"
	"github.com/lifelink/donor-api/internal/repository"
	"github.com/lifelink/donor-api/internal/service/audit"
	"github.com/lifelink/donor-api/pkg/logger"
	"github.com/lifelink/donor-api/pkg/messaging"
	"github.com/lifelink/donor-api/pkg/metrics"
)

type QueueProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	Concurrency   int
	RatePerSecond int
	ClaimGrace    time.Duration
}

// QueueProcessor drains the email queue through the delivery router.
// Each run claims one bounded batch, sends with bounded concurrency,
// and records every outcome before returning; no job is left in the
// sending state across run boundaries except after a crash, which the
// reclaim step repairs on the next run.
type QueueProcessor struct {
	queue   repository.EmailQueueRepository
	router  *email.Router
	broker  messaging.Broker
	auditor audit.Recorder
	config  QueueProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	limiter *rate.Limiter
}

func NewQueueProcessor(
	queue repository.EmailQueueRepository,
	router *email.Router,
	broker messaging.Broker,
	auditor audit.Recorder,
	config QueueProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *QueueProcessor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = 10
	}
	if config.ClaimGrace <= 0 {
		config.ClaimGrace = 10 * time.Minute
	}

	return &QueueProcessor{
		queue:   queue,
		router:  router,
		broker:  broker,
		auditor: auditor,
		config:  config,
		logger:  logger,
		metrics: metrics,
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.RatePerSecond),
	}
}

func (p *QueueProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting queue processor",
		"batch_size", p.config.BatchSize,
		"poll_interval", p.config.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down queue processor")
			return
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil {
				p.logger.Error(err, "queue run failed")
			}
		}
	}
}

// RunOnce processes one batch and returns the number of jobs handled.
// Individual delivery failures never abort the run; only store faults
// do, and then queue state stays as last durably recorded.
func (p *QueueProcessor) RunOnce(ctx context.Context) (int, error) {
	var timer *prometheus.Timer
	if p.metrics != nil {
		timer = prometheus.NewTimer(p.metrics.QueueRunDuration)
		defer timer.ObserveDuration()
	}

	reclaimed, err := p.queue.ReclaimStale(ctx, p.config.ClaimGrace)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale jobs: %w", err)
	}
	if reclaimed > 0 {
		p.logger.Warn(nil, "reclaimed stale sending jobs", "count", reclaimed)
	}

	if p.metrics != nil {
		if pending, err := p.queue.CountPending(ctx); err == nil {
			p.metrics.QueueDepth.Set(float64(pending))
		}
	}

	jobs, err := p.queue.ClaimBatch(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim batch: %w", err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	// Jobs are dispatched in claim order (FIFO by created_at); the
	// worker pool only bounds how many sends are in flight at once.
	jobCh := make(chan *model.EmailJob)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var storeErr error

	for i := 0; i < p.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				if err := p.limiter.Wait(ctx); err != nil {
					// No provider was contacted, so this is not a
					// delivery attempt; the job goes straight back to
					// pending with its attempt budget untouched.
					p.releaseJob(ctx, job, &mu, &storeErr)
					continue
				}
				p.processJob(ctx, job, &mu, &storeErr)
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)
	wg.Wait()

	if storeErr != nil {
		return len(jobs), storeErr
	}
	return len(jobs), nil
}

func (p *QueueProcessor) processJob(ctx context.Context, job *model.EmailJob, mu *sync.Mutex, storeErr *error) {
	msg := &email.Message{
		To:      job.Recipient,
		ToName:  job.RecipientName,
		Subject: job.Subject,
		HTML:    job.HTMLBody,
	}

	provider, err := p.router.Send(ctx, msg)
	if err != nil {
		p.recordOutcome(ctx, job, false, err.Error(), mu, storeErr)
		return
	}

	p.recordOutcome(ctx, job, true, "", mu, storeErr)
	p.publishEvent(ctx, "email.sent", map[string]interface{}{
		"job_id":   job.ID,
		"provider": provider,
	})
}

// releaseJob hands an unattempted claimed job back to the queue. The
// run context is typically already cancelled when this is called, so
// the release gets its own short deadline.
func (p *QueueProcessor) releaseJob(ctx context.Context, job *model.EmailJob, mu *sync.Mutex, storeErr *error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := p.queue.Release(rctx, job.ID); err != nil {
		p.logger.Error(err, "failed to release unattempted job", "job_id", job.ID)
		mu.Lock()
		if *storeErr == nil {
			*storeErr = fmt.Errorf("failed to release job %d: %w", job.ID, err)
		}
		mu.Unlock()
		return
	}
	p.logger.Warn(nil, "job released without a delivery attempt", "job_id", job.ID)
}

func (p *QueueProcessor) recordOutcome(ctx context.Context, job *model.EmailJob, success bool, errMsg string, mu *sync.Mutex, storeErr *error) {
	var msgPtr *string
	if !success {
		msgPtr = &errMsg
	}

	if err := p.queue.RecordOutcome(ctx, job.ID, success, msgPtr); err != nil {
		p.logger.Error(err, "failed to record job outcome", "job_id", job.ID)
		mu.Lock()
		if *storeErr == nil {
			*storeErr = fmt.Errorf("failed to record outcome for job %d: %w", job.ID, err)
		}
		mu.Unlock()
		return
	}

	if success {
		if p.metrics != nil {
			p.metrics.EmailsSent.Inc()
		}
		p.logger.Info("email job sent", "job_id", job.ID, "recipient", job.Recipient)
		return
	}

	// attempts was incremented by RecordOutcome; the pre-claim value
	// tells us whether this failure was terminal.
	exhausted := job.Attempts+1 >= job.MaxAttempts
	if exhausted {
		if p.metrics != nil {
			p.metrics.EmailsFailed.Inc()
		}
		p.logger.Error(nil, "email job exhausted all attempts",
			"job_id", job.ID,
			"recipient", job.Recipient,
			"attempts", job.Attempts+1,
			"error", errMsg)

		if err := p.auditor.Record(ctx, "queue-processor", model.AuditActionSend,
			model.AuditEntityEmailJob, fmt.Sprintf("%d", job.ID),
			map[string]interface{}{"status": "failed", "error": errMsg}); err != nil {
			p.logger.Error(err, "failed to record exhausted-job audit", "job_id", job.ID)
		}
		p.publishEvent(ctx, "email.failed", map[string]interface{}{
			"job_id": job.ID,
			"error":  errMsg,
		})
		return
	}

	if p.metrics != nil {
		p.metrics.JobRetries.Inc()
	}
	p.logger.Warn(nil, "email job returned to queue",
		"job_id", job.ID,
		"attempt", job.Attempts+1,
		"max_attempts", job.MaxAttempts,
		"error", errMsg)
}

func (p *QueueProcessor) publishEvent(ctx context.Context, eventType string, payload map[string]interface{}) {
	if p.broker == nil {
		return
	}
	event := messaging.Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}
	if err := p.broker.Publish(ctx, messaging.ChannelEmailEvents, event); err != nil {
		p.logger.Warn(err, "failed to publish delivery event", "type", eventType)
	}
}
