package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nimasrn/campaign-mailer/internal/queue"
	"github.com/nimasrn/campaign-mailer/pkg/logger"
	"github.com/nimasrn/campaign-mailer/pkg/prom"
	"github.com/nimasrn/campaign-mailer/pkg/redis"
	"github.com/nimasrn/campaign-mailer/pkg/worker"
)

const (
	ProcessingTimeout = 5 * time.Second
	ReportInterval    = 30 * time.Second
	// HighLagThreshold is the pending count above which health checks warn.
	HighLagThreshold = 10_000
)

// Processor handles one decoded stream message.
type Processor interface {
	Process(ctx context.Context, msg *queue.Message) error
	GetType() string
}

type Config struct {
	Queue queue.Config
	// Consumers is the number of stream readers; each gets its own consumer
	// name inside the group.
	Consumers int
	Workers   int
	Buffer    int
}

// Service reads the event stream with several consumers and hands each
// message to a worker pool, blocking the consumer until the worker answers
// so acks stay tied to processing results.
type Service struct {
	adapter   redis.RedisAdapter
	config    Config
	processor Processor
	queues    []*queue.Queue
	worker    *worker.Manager[*job]
	metrics   *ServiceMetrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(adapter redis.RedisAdapter, config Config, processor Processor) (*Service, error) {
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if config.Consumers <= 0 {
		config.Consumers = 1
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.Buffer <= 0 {
		config.Buffer = config.Workers * 16
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		adapter:   adapter,
		config:    config,
		processor: processor,
		worker:    worker.New[*job](config.Buffer, config.Workers, nil),
		metrics:   NewServiceMetrics(),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func (s *Service) Start() error {
	logger.Info("starting event processor", "type", s.processor.GetType(), "stream", s.config.Queue.Stream)

	s.worker.SetWorker(s.handleJob)
	s.worker.SetPanicHandler(func(_ int, j *job, err error) {
		s.metrics.RecordFailure()
		j.result <- err
	})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(); err != nil && !errors.Is(err, worker.ErrTerminated) {
			logger.Error("worker manager stopped", "error", err)
		}
	}()

	base := s.config.Queue.Consumer
	if base == "" {
		base = s.processor.GetType()
	}
	for i := 0; i < s.config.Consumers; i++ {
		qc := s.config.Queue
		qc.Consumer = fmt.Sprintf("%s-%d", base, i)

		q, err := queue.NewQueue(s.adapter, qc)
		if err != nil {
			s.cancel()
			return fmt.Errorf("create consumer %d: %w", i, err)
		}
		s.queues = append(s.queues, q)

		log := logger.With("consumer", qc.Consumer, "stream", qc.Stream)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			log.Debug("consumer running")
			if err := q.Run(s.ctx, s.enqueue); err != nil {
				log.Error("consumer stopped", "error", err)
			}
		}()
	}

	s.wg.Add(1)
	go s.reporter()

	logger.Info("event processor started", "consumers", len(s.queues), "workers", s.config.Workers)
	return nil
}

func (s *Service) reporter() {
	defer s.wg.Done()

	ticker := time.NewTicker(ReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.report()
			s.checkHealth()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) report() {
	snap := s.metrics.Snapshot()
	logger.Info("event processor metrics",
		"processed", snap.Processed,
		"failed", snap.Failed,
		"rate_per_second", snap.RatePerSecond,
		"avg_duration_ms", snap.AvgDuration.Milliseconds(),
		"uptime_seconds", snap.Uptime.Seconds())

	if len(s.queues) == 0 {
		return
	}
	// consumers share the stream and group, one reading is enough
	if st, err := s.queues[0].Stats(); err == nil {
		logger.Info("event stream stats", "length", st.Length, "pending", st.Pending, "consumers", st.Consumers)
		prom.SetStreamBacklog(s.config.Queue.Stream, st.Length, st.Pending)
	}
}

func (s *Service) checkHealth() {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	if err := s.adapter.Ping(ctx); err != nil {
		logger.Error("redis health check failed", "error", err)
		return
	}
	if len(s.queues) == 0 {
		return
	}
	if st, err := s.queues[0].Stats(); err == nil && st.Pending > HighLagThreshold {
		logger.Warn("event stream lagging", "pending", st.Pending)
	}
}

// Stop cancels the consumers, drains the workers and logs final metrics.
func (s *Service) Stop() {
	logger.Info("stopping event processor")
	s.cancel()
	s.worker.Exit()
	s.wg.Wait()
	s.report()
	logger.Info("event processor stopped")
}

func (s *Service) Metrics() Snapshot {
	return s.metrics.Snapshot()
}

type job struct {
	ctx    context.Context
	msg    *queue.Message
	result chan error
}

// enqueue is the queue handler; its return value decides the ack.
func (s *Service) enqueue(ctx context.Context, msg *queue.Message) error {
	jctx, cancel := context.WithTimeout(ctx, ProcessingTimeout)
	defer cancel()

	j := &job{ctx: jctx, msg: msg, result: make(chan error, 1)}
	if !s.worker.Enqueue(j) {
		return worker.ErrTerminated
	}

	select {
	case err := <-j.result:
		return err
	case <-jctx.Done():
		return fmt.Errorf("waiting for worker: %w", jctx.Err())
	}
}

func (s *Service) handleJob(workerIndex int, j *job) {
	if j.ctx.Err() != nil {
		logger.Warn("job expired before processing", "worker", workerIndex, "stream_id", j.msg.ID)
		return
	}

	start := time.Now()
	err := s.processor.Process(j.ctx, j.msg)
	if err != nil {
		s.metrics.RecordFailure()
		logger.Error("event processing failed", "worker", workerIndex, "stream_id", j.msg.ID, "error", err)
	} else {
		s.metrics.RecordSuccess(time.Since(start))
	}

	// result is buffered so this never blocks
	j.result <- err
}
