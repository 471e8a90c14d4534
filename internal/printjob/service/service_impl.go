package service

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shopforge/invoicepress/internal/apperr"
	"github.com/shopforge/invoicepress/internal/archive"
	"github.com/shopforge/invoicepress/internal/clock"
	"github.com/shopforge/invoicepress/internal/config"
	invoicedomain "github.com/shopforge/invoicepress/internal/invoice/domain"
	invoiceservice "github.com/shopforge/invoicepress/internal/invoice/service"
	"github.com/shopforge/invoicepress/internal/metrics"
	"github.com/shopforge/invoicepress/internal/printjob/domain"
	"github.com/shopforge/invoicepress/internal/printjob/queue"
	"github.com/shopforge/invoicepress/internal/storage"
)

// bulkLockTTL bounds how long a crashed worker can hold a shop's bulk
// slot before another instance may start one.
const bulkLockTTL = 15 * time.Minute

// resourceAbortThreshold stops a run early when the first items all
// fail with resource errors, taken as the rendering stack being down
// rather than bad orders.
const resourceAbortThreshold = 3

// ShopLocker serializes bulk jobs per shop across instances. Acquire
// yields an ownership token that is stored on the job and handed back
// through Release when the job reaches a terminal status.
type ShopLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool)
	Release(ctx context.Context, key, token string)
}

func bulkLockKey(shop string) string {
	return "bulk:" + shop
}

type Params struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	DB        *gorm.DB
	GenID     *snowflake.Node
	Clock     clock.Clock
	Generator invoicedomain.Generator
	Queue     queue.Queue
	Bundler   *archive.Bundler
	Storage   storage.Gateway
	Metrics   *metrics.Metrics
	Locker    ShopLocker `optional:"true"`
}

type printJobService struct {
	cfg       config.Config
	log       *zap.Logger
	db        *gorm.DB
	genID     *snowflake.Node
	clock     clock.Clock
	generator invoicedomain.Generator
	queue     queue.Queue
	bundler   *archive.Bundler
	storage   storage.Gateway
	metrics   *metrics.Metrics
	locker    ShopLocker
}

func NewService(p Params) domain.Service {
	return &printJobService{
		cfg:       p.Cfg,
		log:       p.Log.Named("printjob"),
		db:        p.DB,
		genID:     p.GenID,
		clock:     p.Clock,
		generator: p.Generator,
		queue:     p.Queue,
		bundler:   p.Bundler,
		storage:   p.Storage,
		metrics:   p.Metrics,
		locker:    p.Locker,
	}
}

// GenerateSingle runs a one-order job inline. Any error fails the job
// immediately; single jobs never retry or partially succeed.
func (s *printJobService) GenerateSingle(ctx context.Context, shop, orderID string, opts invoicedomain.GenerateOptions) (*domain.PrintJob, *invoicedomain.GenerateResult, error) {
	if err := validateRequest(shop, []string{orderID}); err != nil {
		return nil, nil, err
	}

	now := s.clock.Now()
	job := &domain.PrintJob{
		ID:        s.genID.Generate(),
		Shop:      shop,
		Type:      domain.JobTypeSingle,
		OrderIDs:  []string{orderID},
		Layout:    opts.Layout,
		Status:    domain.JobStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, nil, apperr.NewResource("printjob.create", err)
	}

	itemCtx, cancel := context.WithTimeout(ctx, s.cfg.Worker.ItemTimeout)
	defer cancel()

	started := time.Now()
	result, err := s.generator.GenerateOne(itemCtx, shop, orderID, opts)
	s.metrics.RenderDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		s.finishJob(ctx, job, domain.JobStatusFailed, 0, 1, "", err.Error())
		s.metrics.JobsTotal.WithLabelValues(string(domain.JobTypeSingle), string(domain.JobStatusFailed)).Inc()
		return job, nil, err
	}

	s.finishJob(ctx, job, domain.JobStatusCompleted, 1, 0, result.ArtifactKey, "")
	s.metrics.JobsTotal.WithLabelValues(string(domain.JobTypeSingle), string(domain.JobStatusCompleted)).Inc()
	return job, result, nil
}

// CreateBulk records the job and hands it to the worker queue. Only one
// bulk job per shop may run at a time.
func (s *printJobService) CreateBulk(ctx context.Context, shop string, orderIDs []string, layout string) (*domain.PrintJob, error) {
	if err := validateRequest(shop, orderIDs); err != nil {
		return nil, err
	}

	// The lock travels with the job: its token is persisted on the row
	// and finishJob hands it back once the job turns terminal. The TTL
	// only covers a worker that dies mid-job.
	var lockToken string
	if s.locker != nil {
		token, ok := s.locker.Acquire(ctx, bulkLockKey(shop), bulkLockTTL)
		if !ok {
			return nil, fmt.Errorf("%w: a bulk job is already running for shop %s", apperr.ErrConflict, shop)
		}
		lockToken = token
	}

	now := s.clock.Now()
	job := &domain.PrintJob{
		ID:        s.genID.Generate(),
		Shop:      shop,
		Type:      domain.JobTypeBulk,
		OrderIDs:  orderIDs,
		Layout:    layout,
		Status:    domain.JobStatusQueued,
		LockToken: lockToken,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		s.releaseLock(ctx, job)
		return nil, apperr.NewResource("printjob.create", err)
	}
	if err := s.queue.Enqueue(ctx, job.ID, shop); err != nil {
		s.finishJob(ctx, job, domain.JobStatusFailed, 0, 0, "", "enqueue failed: "+err.Error())
		return nil, err
	}

	s.log.Info("bulk job queued",
		zap.String("shop", shop),
		zap.String("job_id", job.ID.String()),
		zap.Int("orders", len(orderIDs)),
	)
	return job, nil
}

func (s *printJobService) Get(ctx context.Context, shop string, id snowflake.ID) (*domain.PrintJob, error) {
	var job domain.PrintJob
	err := s.db.WithContext(ctx).
		Where("id = ? AND shop = ?", id, shop).
		First(&job).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: job %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, apperr.NewResource("printjob.get", err)
	}
	return &job, nil
}

// Cancel flips the cancellation flag. The orchestrator observes it
// between items, so an in-flight item always finishes first.
func (s *printJobService) Cancel(ctx context.Context, shop string, id snowflake.ID) error {
	job, err := s.Get(ctx, shop, id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return fmt.Errorf("%w: job %s already %s", apperr.ErrConflict, id, job.Status)
	}

	err = s.db.WithContext(ctx).
		Model(&domain.PrintJob{}).
		Where("id = ? AND shop = ?", id, shop).
		Updates(map[string]any{"cancel_requested": true, "updated_at": s.clock.Now()}).Error
	if err != nil {
		return apperr.NewResource("printjob.cancel", err)
	}
	return nil
}

// Process drives a queued bulk job to a terminal status. Resource
// failures that suggest the whole rendering stack is down retry the
// entire job with exponential backoff, up to the configured limit.
func (s *printJobService) Process(ctx context.Context, id snowflake.ID) error {
	var job domain.PrintJob
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: job %s", apperr.ErrNotFound, id)
		}
		return apperr.NewResource("printjob.load", err)
	}
	if job.Status.Terminal() {
		return nil
	}

	backoff := s.cfg.Worker.RetryBackoff
	var runErr error
	for attempt := 0; attempt <= s.cfg.Worker.MaxJobRetries; attempt++ {
		if attempt > 0 {
			s.log.Warn("retrying bulk job",
				zap.String("job_id", job.ID.String()),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(runErr),
			)
			select {
			case <-ctx.Done():
				s.failWithCurrentCounts(ctx, &job, ctx.Err().Error())
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		err := s.db.WithContext(ctx).Model(&job).Updates(map[string]any{
			"attempts":   attempt + 1,
			"updated_at": s.clock.Now(),
		}).Error
		if err != nil {
			s.log.Error("failed to persist job attempt",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}

		runErr = s.runBulk(ctx, &job)
		if runErr == nil || !apperr.IsResource(runErr) {
			return runErr
		}
	}

	s.failWithCurrentCounts(ctx, &job, runErr.Error())
	s.metrics.JobsTotal.WithLabelValues(string(domain.JobTypeBulk), string(domain.JobStatusFailed)).Inc()
	return runErr
}

// failWithCurrentCounts marks the job failed while preserving the
// per-item counts the last run persisted.
func (s *printJobService) failWithCurrentCounts(ctx context.Context, job *domain.PrintJob, errMsg string) {
	current := *job
	if err := s.db.WithContext(ctx).First(&current, "id = ?", job.ID).Error; err != nil {
		current = *job
	}
	s.finishJob(ctx, job, domain.JobStatusFailed, current.CompletedCount, current.FailedCount, "", errMsg)
}

// runBulk is one full pass over the job's orders. It returns a resource
// error only when the run should be retried wholesale; per-order
// failures are absorbed into the counts.
func (s *printJobService) runBulk(ctx context.Context, job *domain.PrintJob) error {
	total := len(job.OrderIDs)
	err := s.db.WithContext(ctx).Model(job).Updates(map[string]any{
		"status":          domain.JobStatusProcessing,
		"progress":        0,
		"completed_count": 0,
		"failed_count":    0,
		"error":           "",
		"updated_at":      s.clock.Now(),
	}).Error
	if err != nil {
		s.log.Error("failed to persist job reset",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
	job.Status = domain.JobStatusProcessing

	var (
		completed    int
		failed       int
		sources      []archive.Source
		itemErrs     []string
		resourceOnly = true
	)

	for i, orderID := range job.OrderIDs {
		cancelled, err := s.cancelRequested(ctx, job.ID)
		if err != nil {
			return err
		}
		if cancelled {
			s.finishJob(ctx, job, domain.JobStatusCancelled, completed, failed, "", "cancelled by user")
			s.metrics.JobsTotal.WithLabelValues(string(domain.JobTypeBulk), string(domain.JobStatusCancelled)).Inc()
			s.log.Info("bulk job cancelled",
				zap.String("job_id", job.ID.String()),
				zap.Int("processed", i),
			)
			return nil
		}

		itemCtx, cancel := context.WithTimeout(ctx, s.cfg.Worker.ItemTimeout)
		started := time.Now()
		result, genErr := s.generator.GenerateOne(itemCtx, job.Shop, orderID, invoicedomain.GenerateOptions{Layout: job.Layout})
		cancel()
		s.metrics.RenderDuration.Observe(time.Since(started).Seconds())

		if genErr != nil {
			failed++
			s.metrics.ItemFailures.Inc()
			itemErrs = append(itemErrs, fmt.Sprintf("%s: %v", orderID, genErr))
			if !apperr.IsResource(genErr) {
				resourceOnly = false
			}
			s.log.Warn("order failed in bulk job",
				zap.String("job_id", job.ID.String()),
				zap.String("order_id", orderID),
				zap.Error(genErr),
			)

			// Nothing but resource errors so far means the rendering
			// stack itself is unavailable.
			if resourceOnly && completed == 0 && failed >= resourceAbortThreshold {
				return apperr.NewResource("printjob.run", fmt.Errorf("first %d orders all failed on resources", failed))
			}
		} else {
			completed++
			sources = append(sources, archive.Source{
				Name: result.InvoiceNumber + ".pdf",
				Key:  result.ArtifactKey,
			})
		}

		progress := int(math.Round(float64(100*(i+1)) / float64(total)))
		err = s.db.WithContext(ctx).Model(job).Updates(map[string]any{
			"progress":        progress,
			"completed_count": completed,
			"failed_count":    failed,
			"updated_at":      s.clock.Now(),
		}).Error
		if err != nil {
			s.log.Error("failed to persist job progress",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	}

	if completed == 0 && failed == total && resourceOnly {
		return apperr.NewResource("printjob.run", fmt.Errorf("all %d orders failed on resources", total))
	}

	if completed == 0 {
		// Every order failed on its own merits. The job itself is done,
		// there is nothing to retry and nothing to archive.
		s.finishJob(ctx, job, domain.JobStatusFailed, completed, failed, "", joinErrors(itemErrs))
		s.metrics.JobsTotal.WithLabelValues(string(domain.JobTypeBulk), string(domain.JobStatusFailed)).Inc()
		return nil
	}

	artifactKey, err := s.bundle(ctx, job, sources)
	if err != nil {
		return err
	}

	s.finishJob(ctx, job, domain.JobStatusCompleted, completed, failed, artifactKey, joinErrors(itemErrs))
	s.metrics.JobsTotal.WithLabelValues(string(domain.JobTypeBulk), string(domain.JobStatusCompleted)).Inc()
	s.log.Info("bulk job completed",
		zap.String("job_id", job.ID.String()),
		zap.Int("completed", completed),
		zap.Int("failed", failed),
		zap.String("artifact_key", artifactKey),
	)
	return nil
}

func (s *printJobService) bundle(ctx context.Context, job *domain.PrintJob, sources []archive.Source) (string, error) {
	var buf bytes.Buffer
	skipped, err := s.bundler.Bundle(ctx, &buf, job.Shop, sources)
	if err != nil {
		return "", apperr.NewResource("printjob.bundle", err)
	}
	if len(skipped) > 0 {
		s.log.Warn("archive missing artifacts",
			zap.String("job_id", job.ID.String()),
			zap.Strings("skipped", skipped),
		)
	}

	artifact, err := s.storage.Save(ctx, job.Shop, "invoices-"+job.ID.String()+".zip", buf.Bytes())
	if err != nil {
		return "", err
	}
	return artifact.Key, nil
}

func (s *printJobService) cancelRequested(ctx context.Context, id snowflake.ID) (bool, error) {
	var job domain.PrintJob
	err := s.db.WithContext(ctx).
		Select("cancel_requested").
		First(&job, "id = ?", id).Error
	if err != nil {
		return false, apperr.NewResource("printjob.poll", err)
	}
	return job.CancelRequested, nil
}

func (s *printJobService) finishJob(ctx context.Context, job *domain.PrintJob, status domain.JobStatus, completed, failed int, artifactKey, errMsg string) {
	now := s.clock.Now()
	updates := map[string]any{
		"status":          status,
		"progress":        100,
		"completed_count": completed,
		"failed_count":    failed,
		"updated_at":      now,
	}
	if status == domain.JobStatusCancelled {
		// A cancelled job keeps the progress it reached.
		delete(updates, "progress")
	}
	if artifactKey != "" {
		updates["artifact_key"] = artifactKey
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	if status.Terminal() {
		updates["completed_at"] = now
		updates["lock_token"] = ""
	}

	if err := s.db.WithContext(ctx).Model(&domain.PrintJob{}).Where("id = ?", job.ID).Updates(updates).Error; err != nil {
		s.log.Error("failed to persist job status",
			zap.String("job_id", job.ID.String()),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return
	}

	job.Status = status
	job.CompletedCount = completed
	job.FailedCount = failed
	if artifactKey != "" {
		job.ArtifactKey = artifactKey
	}
	if errMsg != "" {
		job.Error = errMsg
	}
	if status != domain.JobStatusCancelled {
		job.Progress = 100
	}
	job.CompletedAt = &now
	s.releaseLock(ctx, job)
}

// releaseLock hands the shop's bulk slot back. A job without a token
// never held the lock, so this is a no-op for single jobs and for
// deployments running without redis.
func (s *printJobService) releaseLock(ctx context.Context, job *domain.PrintJob) {
	if s.locker == nil || job.LockToken == "" {
		return
	}
	// A cancelled job context must not keep the lock stuck until TTL.
	s.locker.Release(context.WithoutCancel(ctx), bulkLockKey(job.Shop), job.LockToken)
	job.LockToken = ""
}

// DownloadURL mirrors the single-invoice artifact route.
func DownloadURL(job *domain.PrintJob) string {
	if job.ArtifactKey == "" {
		return ""
	}
	return invoiceservice.DownloadURL(job.ArtifactKey)
}

func validateRequest(shop string, orderIDs []string) error {
	var result *multierror.Error

	if strings.TrimSpace(shop) == "" {
		result = multierror.Append(result, fmt.Errorf("shop is required"))
	}
	if len(orderIDs) == 0 {
		result = multierror.Append(result, fmt.Errorf("at least one order id is required"))
	}
	for i, id := range orderIDs {
		if strings.TrimSpace(id) == "" {
			result = multierror.Append(result, fmt.Errorf("order id at position %d is blank", i))
		}
	}

	if result.ErrorOrNil() == nil {
		return nil
	}
	violations := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		violations = append(violations, e.Error())
	}
	return apperr.NewValidation(violations)
}

func joinErrors(errs []string) string {
	if len(errs) == 0 {
		return ""
	}
	return strings.Join(errs, "; ")
}
