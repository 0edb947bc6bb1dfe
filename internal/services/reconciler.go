package services

import (
	"context"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/config"
	"github.com/Dhoini/Entitlement-service/internal/kafka"
	"github.com/Dhoini/Entitlement-service/internal/metrics"
	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"github.com/robfig/cron/v3"
)

const (
	reconcileBatchSize  = 100
	reconcileRunTimeout = time.Minute
)

// ReconcileReport итоги одного прохода
type ReconcileReport struct {
	Confirmed int
	Orphaned  int
	Pending   int
}

// OrphanReconciler доводит до конца профили, оставшиеся в pending после сбоя списания.
type OrphanReconciler struct {
	cfg      *config.Config
	store    repository.EntitlementStore
	profiles repository.ProfileRepository
	subs     repository.SubscriptionRepository
	producer kafka.Producer
	metrics  metrics.EntitlementMetrics
	log      *logger.Logger
	cron     *cron.Cron
	now      func() time.Time
}

func NewOrphanReconciler(
	cfg *config.Config,
	store repository.EntitlementStore,
	profiles repository.ProfileRepository,
	subs repository.SubscriptionRepository,
	producer kafka.Producer,
	m metrics.EntitlementMetrics,
	log *logger.Logger,
) *OrphanReconciler {
	return &OrphanReconciler{
		cfg:      cfg,
		store:    store,
		profiles: profiles,
		subs:     subs,
		producer: producer,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// Start регистрирует задачу по расписанию redemption.reconcileSchedule и запускает планировщик.
func (r *OrphanReconciler) Start() error {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{log: r.log})))

	if _, err := c.AddFunc(r.cfg.Redemption.ReconcileSchedule, r.run); err != nil {
		r.log.Errorw("Failed to schedule orphan reconciler", "error", err, "schedule", r.cfg.Redemption.ReconcileSchedule)
		return err
	}

	r.cron = c
	c.Start()
	r.log.Infow("Orphan reconciler started", "schedule", r.cfg.Redemption.ReconcileSchedule)
	return nil
}

// Stop останавливает планировщик; контекст завершается, когда текущий проход закончен.
func (r *OrphanReconciler) Stop() context.Context {
	if r.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return r.cron.Stop()
}

func (r *OrphanReconciler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileRunTimeout)
	defer cancel()

	report, err := r.RunOnce(ctx)
	if err != nil {
		return
	}
	if report.Confirmed+report.Orphaned+report.Pending > 0 {
		r.log.Infow("Orphan reconciliation finished",
			"confirmed", report.Confirmed, "orphaned", report.Orphaned, "pending", report.Pending)
	}
}

// RunOnce обрабатывает одну пачку pending-профилей старше orphanTimeout.
func (r *OrphanReconciler) RunOnce(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	now := r.now()

	pending, err := r.profiles.ListPending(ctx, now.Add(-r.cfg.Redemption.OrphanTimeout), reconcileBatchSize)
	if err != nil {
		r.log.Errorw("Failed to list pending profiles", "error", err)
		r.metrics.IncReconciled(metrics.OutcomeError)
		return report, err
	}

	for i := range pending {
		p := &pending[i]
		if ctx.Err() != nil {
			break
		}

		// Профиль с отклоненным кодом не должен молча занять купленное место.
		if p.Origin == models.OriginAccessCode {
			if r.markOrphaned(ctx, p, now) {
				report.Orphaned++
			}
			continue
		}

		if r.cfg.Redemption.OrphanMaxAge > 0 && now.Sub(p.CreatedAt) > r.cfg.Redemption.OrphanMaxAge {
			if r.markOrphaned(ctx, p, now) {
				report.Orphaned++
			}
			continue
		}

		res, err := r.store.AssignFreeSeat(ctx, p.UserID, p.ID)
		if err != nil || !res.OK {
			r.log.Debugw("Seat still unavailable for pending profile", "error", err, "message", res.Message, "profileID", p.ID)
			r.metrics.IncReconciled(metrics.OutcomeRejected)
			report.Pending++
			continue
		}

		if err := r.profiles.MarkState(ctx, p.ID, models.EntitlementConfirmed); err != nil {
			r.log.Warnw("Failed to mark reconciled profile confirmed", "error", err, "profileID", p.ID)
		}
		if err := r.subs.InvalidateUser(ctx, p.UserID); err != nil {
			r.log.Warnw("Failed to invalidate subscription cache", "error", err, "userID", p.UserID)
		}
		r.publish(ctx, kafka.TopicProfileCreated, p.UserID, kafka.ProfileCreatedEvent{
			ProfileID:  p.ID,
			UserID:     p.UserID,
			Method:     kafka.MethodReconciled,
			EndsAt:     res.EndsAt,
			OccurredAt: now.UTC(),
		})
		r.metrics.IncReconciled(metrics.OutcomeOK)
		r.log.Infow("Pending profile reconciled", "profileID", p.ID, "userID", p.UserID)
		report.Confirmed++
	}

	return report, nil
}

func (r *OrphanReconciler) markOrphaned(ctx context.Context, p *models.DependentProfile, now time.Time) bool {
	if err := r.profiles.MarkState(ctx, p.ID, models.EntitlementOrphaned); err != nil {
		r.log.Errorw("Failed to mark profile orphaned", "error", err, "profileID", p.ID)
		r.metrics.IncReconciled(metrics.OutcomeError)
		return false
	}

	r.log.Warnw("Profile orphaned: seat never assigned", "profileID", p.ID, "userID", p.UserID, "createdAt", p.CreatedAt)
	r.publish(ctx, kafka.TopicProfileOrphaned, p.UserID, kafka.ProfileOrphanedEvent{
		ProfileID:  p.ID,
		UserID:     p.UserID,
		CreatedAt:  p.CreatedAt,
		OccurredAt: now.UTC(),
	})
	r.metrics.IncReconciled(metrics.OutcomeNoop)
	return true
}

func (r *OrphanReconciler) publish(ctx context.Context, topic, key string, event any) {
	if err := r.producer.Publish(ctx, topic, key, event); err != nil {
		r.log.Warnw("Failed to publish reconciler event", "error", err, "topic", topic)
	}
}

// cronLogger адаптирует logger.Logger к cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
