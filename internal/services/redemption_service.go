package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dhoini/Entitlement-service/internal/config"
	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/kafka"
	"github.com/Dhoini/Entitlement-service/internal/metrics"
	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"github.com/google/uuid"
)

const (
	maxDisplayNameLength = 100
	minBirthYear         = 1900
)

// ProfileInput данные нового профиля спортсмена
type ProfileInput struct {
	DisplayName    string
	BirthYear      *int
	SeasonID       string
	ClubID         string
	TeamID         string
	CompetitionIDs []string
}

// RedeemOptions чем оплачивается место
type RedeemOptions struct {
	AccessCode string
	PlanID     string
	// IdempotencyKey повторный запрос с тем же ключом продолжает начатую попытку.
	IdempotencyKey string
}

// RedemptionService создает профили и списывает за них место или код доступа.
type RedemptionService struct {
	cfg      *config.Config
	seats    *SeatLedger
	store    repository.EntitlementStore
	profiles repository.ProfileRepository
	subs     repository.SubscriptionRepository
	producer kafka.Producer
	metrics  metrics.EntitlementMetrics
	log      *logger.Logger
	now      func() time.Time
}

func NewRedemptionService(
	cfg *config.Config,
	seats *SeatLedger,
	store repository.EntitlementStore,
	profiles repository.ProfileRepository,
	subs repository.SubscriptionRepository,
	producer kafka.Producer,
	m metrics.EntitlementMetrics,
	log *logger.Logger,
) *RedemptionService {
	return &RedemptionService{
		cfg:      cfg,
		seats:    seats,
		store:    store,
		profiles: profiles,
		subs:     subs,
		producer: producer,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// CreateDependentProfile создает профиль и списывает за него место.
// Без кода доступа нужен свободный слот; с кодом сначала создается подписка по коду.
func (s *RedemptionService) CreateDependentProfile(ctx context.Context, userID string, in ProfileInput, opts RedeemOptions) (string, error) {
	if verrs := ValidateProfileInput(in, s.now()); verrs.HasErrors() {
		return "", verrs
	}

	code := strings.TrimSpace(opts.AccessCode)
	method := kafka.MethodSeat
	if code != "" {
		method = kafka.MethodAccessCode
	}

	var existing *models.DependentProfile
	if opts.IdempotencyKey != "" {
		p, err := s.profiles.GetByRedemptionKey(ctx, userID, opts.IdempotencyKey)
		switch {
		case err == nil:
			if p.EntitlementState == models.EntitlementConfirmed {
				s.log.Infow("Redemption already completed for key", "userID", userID, "profileID", p.ID)
				return p.ID, nil
			}
			existing = p
		case errors.Is(err, repository.ErrNotFound):
		default:
			s.log.Errorw("Failed to look up profile by redemption key", "error", err, "userID", userID)
			return "", fmt.Errorf("%w: lookup redemption key: %w", domain.ErrRemoteWriteFailed, err)
		}
	}

	if code == "" && s.seats.RemainingSeats(ctx, userID) <= 0 {
		s.log.Infow("Profile creation rejected: no seats remaining", "userID", userID)
		s.metrics.IncRedemption(string(method), metrics.OutcomeExhausted)
		return "", domain.ErrEntitlementExhausted
	}

	if err := s.store.EnsureProfileServer(ctx, userID); err != nil {
		s.log.Errorw("Failed to ensure profile server", "error", err, "userID", userID)
		s.metrics.IncRedemption(string(method), metrics.OutcomeError)
		return "", fmt.Errorf("%w: ensure profile server: %w", domain.ErrRemoteWriteFailed, err)
	}

	if code != "" {
		if err := s.createCodeSubscription(ctx, code, opts.PlanID, existing != nil); err != nil {
			s.metrics.IncRedemption(string(method), outcomeFor(err))
			return "", err
		}
	}

	profile := existing
	if profile == nil {
		origin := models.OriginSeat
		if code != "" {
			origin = models.OriginAccessCode
		}
		created, err := s.createProfile(ctx, userID, in, opts.IdempotencyKey, origin)
		if err != nil {
			s.metrics.IncRedemption(string(method), metrics.OutcomeError)
			return "", err
		}
		profile = created
	} else {
		s.log.Infow("Resuming redemption for existing profile", "userID", userID, "profileID", profile.ID)
	}

	var endsAt *time.Time
	if code != "" {
		res, usedMethod, err := s.redeemCode(ctx, code, userID, profile.ID)
		if err != nil {
			s.metrics.IncRedemption(string(method), outcomeFor(err))
			return "", err
		}
		endsAt = res.EndsAt
		method = usedMethod
	} else {
		res, err := s.store.AssignFreeSeat(ctx, userID, profile.ID)
		if err != nil || !res.OK {
			s.log.Errorw("Failed to assign free seat, profile left pending",
				"error", err, "message", res.Message, "userID", userID, "profileID", profile.ID)
			s.metrics.IncRedemption(string(method), metrics.OutcomeError)
			if err == nil {
				err = errors.New(res.Message)
			}
			return "", fmt.Errorf("%w: assign free seat: %w", domain.ErrRemoteWriteFailed, err)
		}
	}

	s.finalize(ctx, profile, method, endsAt)
	return profile.ID, nil
}

func (s *RedemptionService) createCodeSubscription(ctx context.Context, code, planID string, resuming bool) error {
	if planID == "" {
		planID = s.cfg.Redemption.FreePlanID
	}

	res, err := s.store.CreateCodeSubscription(ctx, code, planID)
	if err != nil {
		s.log.Errorw("create_code_subscription failed", "error", err, "planID", planID)
		return fmt.Errorf("%w: create code subscription: %w", domain.ErrRemoteWriteFailed, err)
	}
	if res.OK {
		return nil
	}

	codeErr := codeFailure(res.Message)
	// Предыдущая попытка уже израсходовала код на этот же профиль: дальше решит процедура погашения.
	if resuming && errors.Is(codeErr, domain.ErrCodeAlreadyUsed) {
		return nil
	}
	s.log.Infow("Access code rejected", "reason", res.Message)
	return codeErr
}

// redeemCode гасит код на профиль. Если код успели погасить параллельно, пробует списать свободное место.
func (s *RedemptionService) redeemCode(ctx context.Context, code, userID, profileID string) (models.ProcedureResult, kafka.RedemptionMethod, error) {
	res, err := s.store.RedeemAccessCode(ctx, code, userID, profileID)
	if err != nil {
		s.log.Errorw("redeem_access_code_for_player failed", "error", err, "userID", userID, "profileID", profileID)
		return res, "", fmt.Errorf("%w: redeem access code: %w", domain.ErrRemoteWriteFailed, err)
	}
	if res.OK {
		return res, kafka.MethodAccessCode, nil
	}

	codeErr := codeFailure(res.Message)
	if !errors.Is(codeErr, domain.ErrCodeAlreadyUsed) {
		s.log.Infow("Access code redemption rejected", "reason", res.Message, "profileID", profileID)
		return res, "", codeErr
	}

	s.log.Warnw("Access code already used, falling back to free seat", "userID", userID, "profileID", profileID)
	fallback, err := s.store.AssignFreeSeat(ctx, userID, profileID)
	if err != nil || !fallback.OK {
		s.log.Warnw("Fallback seat assignment failed", "error", err, "message", fallback.Message, "profileID", profileID)
		return fallback, "", domain.ErrCodeAlreadyUsed
	}
	return fallback, kafka.MethodCodeFallback, nil
}

func (s *RedemptionService) createProfile(ctx context.Context, userID string, in ProfileInput, key string, origin models.ProfileOrigin) (*models.DependentProfile, error) {
	if key == "" {
		key = uuid.NewString()
	}

	profile := &models.DependentProfile{
		ID:               uuid.NewString(),
		UserID:           userID,
		DisplayName:      strings.TrimSpace(in.DisplayName),
		BirthYear:        in.BirthYear,
		SeasonID:         optional(in.SeasonID),
		ClubID:           optional(in.ClubID),
		TeamID:           optional(in.TeamID),
		CompetitionIDs:   in.CompetitionIDs,
		RedemptionKey:    key,
		EntitlementState: models.EntitlementPending,
		Origin:           origin,
	}

	err := s.profiles.Create(ctx, profile)
	if err == nil {
		return profile, nil
	}

	// Параллельный запрос с тем же ключом успел создать профиль первым.
	if errors.Is(err, repository.ErrDuplicate) {
		existing, lookupErr := s.profiles.GetByRedemptionKey(ctx, userID, key)
		if lookupErr == nil {
			return existing, nil
		}
		err = lookupErr
	}

	s.log.Errorw("Failed to create dependent profile", "error", err, "userID", userID)
	return nil, fmt.Errorf("%w: create profile: %w", domain.ErrRemoteWriteFailed, err)
}

// finalize — некритичные шаги после успешного списания; ошибки только логируются.
func (s *RedemptionService) finalize(ctx context.Context, profile *models.DependentProfile, method kafka.RedemptionMethod, endsAt *time.Time) {
	if err := s.profiles.MarkState(ctx, profile.ID, models.EntitlementConfirmed); err != nil {
		s.log.Warnw("Failed to mark profile confirmed", "error", err, "profileID", profile.ID)
	}
	if err := s.subs.InvalidateUser(ctx, profile.UserID); err != nil {
		s.log.Warnw("Failed to invalidate subscription cache", "error", err, "userID", profile.UserID)
	}

	event := kafka.ProfileCreatedEvent{
		ProfileID:  profile.ID,
		UserID:     profile.UserID,
		Method:     method,
		EndsAt:     endsAt,
		OccurredAt: s.now().UTC(),
	}
	if err := s.producer.Publish(ctx, kafka.TopicProfileCreated, profile.UserID, event); err != nil {
		s.log.Warnw("Failed to publish profile created event", "error", err, "profileID", profile.ID)
	}

	s.metrics.IncRedemption(string(method), metrics.OutcomeOK)
	s.log.Infow("Dependent profile created", "userID", profile.UserID, "profileID", profile.ID, "method", method)
}

// ValidateProfileInput проверяет профиль до любых удаленных вызовов
func ValidateProfileInput(in ProfileInput, now time.Time) domain.ValidationErrors {
	var verrs domain.ValidationErrors

	name := strings.TrimSpace(in.DisplayName)
	switch {
	case name == "":
		verrs.Add("display_name", "is required")
	case utf8.RuneCountInString(name) > maxDisplayNameLength:
		verrs.Add("display_name", fmt.Sprintf("must be at most %d characters", maxDisplayNameLength))
	}

	if in.BirthYear != nil && (*in.BirthYear < minBirthYear || *in.BirthYear > now.Year()) {
		verrs.Add("birth_year", fmt.Sprintf("must be between %d and %d", minBirthYear, now.Year()))
	}

	for _, id := range in.CompetitionIDs {
		if strings.TrimSpace(id) == "" {
			verrs.Add("competition_ids", "must not contain empty ids")
			break
		}
	}
	return verrs
}

// codeFailure различает использованный и недействительный код по тексту ответа процедуры.
func codeFailure(message string) error {
	msg := strings.ToLower(message)
	if strings.Contains(msg, "already used") || strings.Contains(msg, "already redeemed") {
		return domain.ErrCodeAlreadyUsed
	}
	return domain.ErrCodeInvalid
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrCodeAlreadyUsed), errors.Is(err, domain.ErrCodeInvalid):
		return metrics.OutcomeRejected
	case errors.Is(err, domain.ErrEntitlementExhausted):
		return metrics.OutcomeExhausted
	default:
		return metrics.OutcomeError
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
