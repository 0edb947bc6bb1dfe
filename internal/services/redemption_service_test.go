package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/domain"
	"github.com/Dhoini/Entitlement-service/internal/kafka"
	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type redemptionFixture struct {
	store    *storeMock
	profiles *profileRepoMock
	subs     *subsRepoMock
	producer *producerMock
	svc      *RedemptionService
}

func newRedemptionFixture() *redemptionFixture {
	f := &redemptionFixture{
		store:    &storeMock{},
		profiles: &profileRepoMock{},
		subs:     &subsRepoMock{},
		producer: &producerMock{},
	}
	f.svc = newRedemptionService(f.store, f.profiles, f.subs, f.producer)
	return f
}

func newRedemptionService(store repository.EntitlementStore, profiles repository.ProfileRepository, subs repository.SubscriptionRepository, producer kafka.Producer) *RedemptionService {
	cfg := testConfig()
	m := testMetrics()
	log := logger.NewNop()
	seats := NewSeatLedger(cfg, store, subs, m, log)
	svc := NewRedemptionService(cfg, seats, store, profiles, subs, producer, m, log)
	svc.now = func() time.Time { return testNow }
	return svc
}

func (f *redemptionFixture) expectFinalize(method kafka.RedemptionMethod) {
	f.profiles.On("MarkState", mock.Anything, mock.Anything, models.EntitlementConfirmed).Return(nil).Once()
	f.subs.On("InvalidateUser", mock.Anything, "user-1").Return(nil).Once()
	f.producer.On("Publish", mock.Anything, kafka.TopicProfileCreated, "user-1",
		mock.MatchedBy(func(e kafka.ProfileCreatedEvent) bool { return e.Method == method })).Return(nil).Once()
}

func (f *redemptionFixture) assertAll(t *testing.T) {
	f.store.AssertExpectations(t)
	f.profiles.AssertExpectations(t)
	f.subs.AssertExpectations(t)
	f.producer.AssertExpectations(t)
}

var okResult = models.ProcedureResult{OK: true}

func TestCreateProfileWithFreeSeat(t *testing.T) {
	f := newRedemptionFixture()
	ctx := context.Background()

	f.store.On("SeatsRemaining", ctx, "user-1").Return(2, nil).Once()
	f.store.On("EnsureProfileServer", ctx, "user-1").Return(nil).Once()
	f.profiles.On("Create", ctx, mock.MatchedBy(func(p *models.DependentProfile) bool {
		return p.UserID == "user-1" && p.DisplayName == "Alex" &&
			p.EntitlementState == models.EntitlementPending && p.RedemptionKey != "" &&
			p.ClubID != nil && *p.ClubID == "club-1" && p.TeamID == nil &&
			p.Origin == models.OriginSeat
	})).Return(nil).Once()
	f.store.On("AssignFreeSeat", ctx, "user-1", mock.AnythingOfType("string")).Return(okResult, nil).Once()
	f.expectFinalize(kafka.MethodSeat)

	id, err := f.svc.CreateDependentProfile(ctx, "user-1", ProfileInput{DisplayName: " Alex ", ClubID: "club-1"}, RedeemOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	f.assertAll(t)
}

func TestZeroSeatsRejectsWithoutWrites(t *testing.T) {
	f := newRedemptionFixture()
	ctx := context.Background()

	f.store.On("SeatsRemaining", ctx, "user-1").Return(0, nil).Once()

	_, err := f.svc.CreateDependentProfile(ctx, "user-1", ProfileInput{DisplayName: "Alex"}, RedeemOptions{})
	assert.ErrorIs(t, err, domain.ErrEntitlementExhausted)
	f.store.AssertNotCalled(t, "EnsureProfileServer", mock.Anything, mock.Anything)
	f.profiles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestSeatReadFailureFailsClosed(t *testing.T) {
	f := newRedemptionFixture()
	ctx := context.Background()

	f.store.On("SeatsRemaining", ctx, "user-1").Return(0, errors.New("connection refused")).Once()

	_, err := f.svc.CreateDependentProfile(ctx, "user-1", ProfileInput{DisplayName: "Alex"}, RedeemOptions{})
	assert.ErrorIs(t, err, domain.ErrEntitlementExhausted)
	f.assertAll(t)
}

func TestInvalidProfileInputNeverReachesStore(t *testing.T) {
	f := newRedemptionFixture()
	year := 1850

	_, err := f.svc.CreateDependentProfile(context.Background(), "user-1",
		ProfileInput{DisplayName: "  ", BirthYear: &year}, RedeemOptions{AccessCode: "CODE"})

	verrs, ok := domain.AsValidation(err)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"display_name", "birth_year"}, verrs.Fields())
	f.assertAll(t)
}

func TestCreateProfileWithAccessCode(t *testing.T) {
	f := newRedemptionFixture()
	ctx := context.Background()
	endsAt := testNow.AddDate(1, 0, 0)

	f.store.On("EnsureProfileServer", ctx, "user-1").Return(nil).Once()
	f.store.On("CreateCodeSubscription", ctx, "SPRING", "free").Return(okResult, nil).Once()
	f.profiles.On("Create", ctx, mock.MatchedBy(func(p *models.DependentProfile) bool {
		return p.Origin == models.OriginAccessCode
	})).Return(nil).Once()
	f.store.On("RedeemAccessCode", ctx, "SPRING", "user-1", mock.AnythingOfType("string")).
		Return(models.ProcedureResult{OK: true, EndsAt: &endsAt}, nil).Once()
	f.expectFinalize(kafka.MethodAccessCode)

	_, err := f.svc.CreateDependentProfile(ctx, "user-1", ProfileInput{DisplayName: "Alex"}, RedeemOptions{AccessCode: " SPRING "})
	require.NoError(t, err)
	f.store.AssertNotCalled(t, "SeatsRemaining", mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestCodeSubscriptionRejections(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    error
	}{
		{"already used", "code already used", domain.ErrCodeAlreadyUsed},
		{"already redeemed", "Code already redeemed", domain.ErrCodeAlreadyUsed},
		{"invalid", "invalid code", domain.ErrCodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRedemptionFixture()
			ctx := context.Background()

			f.store.On("EnsureProfileServer", ctx, "user-1").Return(nil).Once()
			f.store.On("CreateCodeSubscription", ctx, "X", "gold").
				Return(models.ProcedureResult{OK: false, Message: tt.message}, nil).Once()

			_, err := f.svc.CreateDependentProfile(ctx, "user-1", ProfileInput{DisplayName: "Alex"},
				RedeemOptions{AccessCode: "X", PlanID: "gold"})
			assert.ErrorIs(t, err, tt.want)
			f.profiles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.assertAll(t)
		})
	}
}

func TestRedeemCollisionFallsBackToFreeSeat(t *testing.T) {
	f := newRedemptionFixture()
	ctx := context.Background()

	f.store.On("EnsureProfileServer", ctx, "user-1").Return(nil).Once()
	f.store.On("CreateCodeSubscription", ctx, "X", "free").Return(okResult, nil).Once()
	f.profiles.On("Create", ctx, mock.Anything).Return(nil).Once()
	f.store.On("RedeemAccessCode", ctx, "X", "user-1", mock.Anything).
		Return(models.ProcedureResult{Message: "code already used"}, nil).Once()
	f.store.On("AssignFreeSeat", ctx, "user-1", mock.Anything).Return(okResult, nil).Once()
	f.expectFinalize(kafka.MethodCodeFallback)

	_, err := f.svc.CreateDependentProfile(ctx, "user-1", ProfileInput{DisplayName: "Alex"}, RedeemOptions{AccessCode: "X"})
	require.NoError(t, err)
	f.assertAll(t)
}

func TestRedeemCollisionWithoutFreeSeat(t *testing.T) {
	f := newRedemptionFixture()
	ctx := context.Background()

	f.store.On("EnsureProfileServer", ctx, "user-1").Return(nil).Once()
	f.store.On("CreateCodeSubscription", ctx, "X", "free").Return(okResult, nil).Once()
	f.profiles.On("Create", ctx, mock.Anything).Return(nil).Once()
	f.store.On("RedeemAccessCode", ctx, "X", "user-1", mock.Anything).
		Return(models.ProcedureResult{Message: "code already used"}, nil).Once()
	f.store.On("AssignFreeSeat", ctx, "user-1", mock.Anything).
		Return(models.ProcedureResult{Message: "no free seats"}, nil).Once()

	_, err := f.svc.CreateDependentProfile(ctx, "user-1", ProfileInput{DisplayName: "Alex"}, RedeemOptions{AccessCode: "X"})
	assert.ErrorIs(t, err, domain.ErrCodeAlreadyUsed)
	f.profiles.AssertNotCalled(t, "MarkState", mock.Anything, mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestSeatAssignmentFailureLeavesProfilePending(t *testing.T) {
	f := newRedemptionFixture()
	ctx := context.Background()

	f.store.On("SeatsRemaining", ctx, "user-1").Return(1, nil).Once()
	f.store.On("EnsureProfileServer", ctx, "user-1").Return(nil).Once()
	f.profiles.On("Create", ctx, mock.Anything).Return(nil).Once()
	f.store.On("AssignFreeSeat", ctx, "user-1", mock.Anything).Return(models.ProcedureResult{}, errors.New("timeout")).Once()

	_, err := f.svc.CreateDependentProfile(ctx, "user-1", ProfileInput{DisplayName: "Alex"}, RedeemOptions{})
	assert.ErrorIs(t, err, domain.ErrRemoteWriteFailed)
	f.profiles.AssertNotCalled(t, "MarkState", mock.Anything, mock.Anything, mock.Anything)
	f.producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestNonCriticalFailuresDoNotFailRedemption(t *testing.T) {
	f := newRedemptionFixture()
	ctx := context.Background()

	f.store.On("SeatsRemaining", ctx, "user-1").Return(1, nil).Once()
	f.store.On("EnsureProfileServer", ctx, "user-1").Return(nil).Once()
	f.profiles.On("Create", ctx, mock.Anything).Return(nil).Once()
	f.store.On("AssignFreeSeat", ctx, "user-1", mock.Anything).Return(okResult, nil).Once()
	f.profiles.On("MarkState", ctx, mock.Anything, models.EntitlementConfirmed).Return(errors.New("db down")).Once()
	f.subs.On("InvalidateUser", ctx, "user-1").Return(errors.New("redis down")).Once()
	f.producer.On("Publish", ctx, kafka.TopicProfileCreated, "user-1", mock.Anything).Return(errors.New("kafka down")).Once()

	id, err := f.svc.CreateDependentProfile(ctx, "user-1", ProfileInput{DisplayName: "Alex"}, RedeemOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	f.assertAll(t)
}

func TestIdempotencyKeyResumesPendingProfile(t *testing.T) {
	f := newRedemptionFixture()
	ctx := context.Background()
	pending := &models.DependentProfile{ID: "profile-7", UserID: "user-1", EntitlementState: models.EntitlementPending}

	f.profiles.On("GetByRedemptionKey", ctx, "user-1", "key-1").Return(pending, nil).Once()
	f.store.On("SeatsRemaining", ctx, "user-1").Return(1, nil).Once()
	f.store.On("EnsureProfileServer", ctx, "user-1").Return(nil).Once()
	f.store.On("AssignFreeSeat", ctx, "user-1", "profile-7").Return(okResult, nil).Once()
	f.expectFinalize(kafka.MethodSeat)

	id, err := f.svc.CreateDependentProfile(ctx, "user-1", ProfileInput{DisplayName: "Alex"}, RedeemOptions{IdempotencyKey: "key-1"})
	require.NoError(t, err)
	assert.Equal(t, "profile-7", id)
	f.profiles.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestIdempotencyKeyReturnsConfirmedProfile(t *testing.T) {
	f := newRedemptionFixture()
	ctx := context.Background()
	done := &models.DependentProfile{ID: "profile-7", UserID: "user-1", EntitlementState: models.EntitlementConfirmed}

	f.profiles.On("GetByRedemptionKey", ctx, "user-1", "key-1").Return(done, nil).Once()

	id, err := f.svc.CreateDependentProfile(ctx, "user-1", ProfileInput{DisplayName: "Alex"}, RedeemOptions{IdempotencyKey: "key-1", AccessCode: "X"})
	require.NoError(t, err)
	assert.Equal(t, "profile-7", id)
	f.assertAll(t)
}

func TestConcurrentCreateWithSameKeyResumes(t *testing.T) {
	f := newRedemptionFixture()
	ctx := context.Background()
	winner := &models.DependentProfile{ID: "profile-9", UserID: "user-1", EntitlementState: models.EntitlementPending}

	f.profiles.On("GetByRedemptionKey", ctx, "user-1", "key-2").Return(nil, repository.ErrNotFound).Once()
	f.store.On("SeatsRemaining", ctx, "user-1").Return(1, nil).Once()
	f.store.On("EnsureProfileServer", ctx, "user-1").Return(nil).Once()
	f.profiles.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate).Once()
	f.profiles.On("GetByRedemptionKey", ctx, "user-1", "key-2").Return(winner, nil).Once()
	f.store.On("AssignFreeSeat", ctx, "user-1", "profile-9").Return(okResult, nil).Once()
	f.expectFinalize(kafka.MethodSeat)

	id, err := f.svc.CreateDependentProfile(ctx, "user-1", ProfileInput{DisplayName: "Alex"}, RedeemOptions{IdempotencyKey: "key-2"})
	require.NoError(t, err)
	assert.Equal(t, "profile-9", id)
	f.assertAll(t)
}

// memoryStore повторяет контракт хранимых процедур в памяти.
type memoryStore struct {
	seats    int
	codes    map[string]bool
	created  map[string]bool
	redeemed map[string]bool
	assigned map[string]bool
}

func newMemoryStore(seats int, codes ...string) *memoryStore {
	s := &memoryStore{
		seats:    seats,
		codes:    map[string]bool{},
		created:  map[string]bool{},
		redeemed: map[string]bool{},
		assigned: map[string]bool{},
	}
	for _, c := range codes {
		s.codes[c] = true
	}
	return s
}

func (s *memoryStore) SeatsRemaining(context.Context, string) (int, error) { return s.seats, nil }

func (s *memoryStore) EnsureProfileServer(context.Context, string) error { return nil }

func (s *memoryStore) CreateCodeSubscription(_ context.Context, code, _ string) (models.ProcedureResult, error) {
	switch {
	case !s.codes[code]:
		return models.ProcedureResult{Message: "invalid code"}, nil
	case s.created[code]:
		return models.ProcedureResult{Message: "code already used"}, nil
	}
	s.created[code] = true
	return okResult, nil
}

func (s *memoryStore) RedeemAccessCode(_ context.Context, code, _, profileID string) (models.ProcedureResult, error) {
	if s.redeemed[code] {
		return models.ProcedureResult{Message: "code already used"}, nil
	}
	s.redeemed[code] = true
	s.assigned[profileID] = true
	return okResult, nil
}

func (s *memoryStore) AssignFreeSeat(_ context.Context, _, profileID string) (models.ProcedureResult, error) {
	if s.assigned[profileID] {
		return okResult, nil
	}
	if s.seats <= 0 {
		return models.ProcedureResult{Message: "no free seats"}, nil
	}
	s.seats--
	s.assigned[profileID] = true
	return okResult, nil
}

type memoryProfiles struct {
	byID map[string]*models.DependentProfile
}

func (m *memoryProfiles) Create(_ context.Context, p *models.DependentProfile) error {
	m.byID[p.ID] = p
	return nil
}

func (m *memoryProfiles) GetByRedemptionKey(_ context.Context, userID, key string) (*models.DependentProfile, error) {
	for _, p := range m.byID {
		if p.UserID == userID && p.RedemptionKey == key {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryProfiles) MarkState(_ context.Context, id string, state models.EntitlementState) error {
	m.byID[id].EntitlementState = state
	return nil
}

func (m *memoryProfiles) ListPending(context.Context, time.Time, int) ([]models.DependentProfile, error) {
	return nil, nil
}

func TestSequentialCodeRedemptionIsAtMostOnce(t *testing.T) {
	store := newMemoryStore(0, "ONCE")
	profiles := &memoryProfiles{byID: map[string]*models.DependentProfile{}}
	subs := &subsRepoMock{}
	subs.On("InvalidateUser", mock.Anything, "user-1").Return(nil)
	svc := newRedemptionService(store, profiles, subs, kafka.NewNopProducer(logger.NewNop()))
	ctx := context.Background()

	_, err := svc.CreateDependentProfile(ctx, "user-1", ProfileInput{DisplayName: "First"}, RedeemOptions{AccessCode: "ONCE"})
	require.NoError(t, err)

	_, err = svc.CreateDependentProfile(ctx, "user-1", ProfileInput{DisplayName: "Second"}, RedeemOptions{AccessCode: "ONCE"})
	assert.ErrorIs(t, err, domain.ErrCodeAlreadyUsed)

	assert.Len(t, profiles.byID, 1)
	for _, p := range profiles.byID {
		assert.Equal(t, models.EntitlementConfirmed, p.EntitlementState)
	}
}

func TestValidateProfileInput(t *testing.T) {
	long := make([]rune, maxDisplayNameLength+1)
	for i := range long {
		long[i] = 'a'
	}
	future := testNow.Year() + 1

	assert.False(t, ValidateProfileInput(ProfileInput{DisplayName: "Alex"}, testNow).HasErrors())
	assert.Equal(t, "is required", ValidateProfileInput(ProfileInput{}, testNow).GetByField("display_name"))
	assert.NotEmpty(t, ValidateProfileInput(ProfileInput{DisplayName: string(long)}, testNow).GetByField("display_name"))
	assert.NotEmpty(t, ValidateProfileInput(ProfileInput{DisplayName: "A", BirthYear: &future}, testNow).GetByField("birth_year"))
	assert.NotEmpty(t, ValidateProfileInput(ProfileInput{DisplayName: "A", CompetitionIDs: []string{"c1", " "}}, testNow).GetByField("competition_ids"))
}
