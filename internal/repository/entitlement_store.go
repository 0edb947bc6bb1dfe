package repository

import (
	"context"
	"fmt"

	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/jmoiron/sqlx"
)

type postgresEntitlementStore struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresEntitlementStore создает обертку над хранимыми процедурами мест и кодов доступа.
func NewPostgresEntitlementStore(db *sqlx.DB, log *logger.Logger) EntitlementStore {
	return &postgresEntitlementStore{db: db, log: log}
}

func (s *postgresEntitlementStore) SeatsRemaining(ctx context.Context, userID string) (int, error) {
	var remaining int
	if err := s.db.GetContext(ctx, &remaining, `SELECT seats_remaining($1)`, userID); err != nil {
		return 0, fmt.Errorf("repository: seats_remaining: %w", err)
	}
	return remaining, nil
}

func (s *postgresEntitlementStore) EnsureProfileServer(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `SELECT ensure_profile_server($1)`, userID); err != nil {
		return fmt.Errorf("repository: ensure_profile_server: %w", err)
	}
	return nil
}

func (s *postgresEntitlementStore) CreateCodeSubscription(ctx context.Context, code, planID string) (models.ProcedureResult, error) {
	var res models.ProcedureResult
	query := `SELECT ok, COALESCE(message, '') AS message FROM create_code_subscription($1, $2)`
	if err := s.db.GetContext(ctx, &res, query, code, planID); err != nil {
		return res, fmt.Errorf("repository: create_code_subscription: %w", err)
	}
	return res, nil
}

func (s *postgresEntitlementStore) RedeemAccessCode(ctx context.Context, code, userID, profileID string) (models.ProcedureResult, error) {
	var res models.ProcedureResult
	query := `SELECT ok, COALESCE(message, '') AS message, ends_at FROM redeem_access_code_for_player($1, $2, $3)`
	if err := s.db.GetContext(ctx, &res, query, code, userID, profileID); err != nil {
		return res, fmt.Errorf("repository: redeem_access_code_for_player: %w", err)
	}
	s.log.Debugw("Access code redemption answered", "userID", userID, "profileID", profileID, "ok", res.OK)
	return res, nil
}

func (s *postgresEntitlementStore) AssignFreeSeat(ctx context.Context, userID, profileID string) (models.ProcedureResult, error) {
	var res models.ProcedureResult
	query := `SELECT ok, COALESCE(message, '') AS message FROM assign_free_seat_to_player($1, $2)`
	if err := s.db.GetContext(ctx, &res, query, userID, profileID); err != nil {
		return res, fmt.Errorf("repository: assign_free_seat_to_player: %w", err)
	}
	s.log.Debugw("Seat assignment answered", "userID", userID, "profileID", profileID, "ok", res.OK)
	return res, nil
}
