package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/db"
	"github.com/Dhoini/Entitlement-service/internal/models"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const uniqueViolation = "23505"

// ProfileRepository хранит профили спортсменов и их связи.
type ProfileRepository interface {
	// Create сохраняет профиль и его дочерние строки одной транзакцией.
	Create(ctx context.Context, p *models.DependentProfile) error
	// GetByRedemptionKey ищет профиль, созданный предыдущей попыткой с тем же ключом.
	GetByRedemptionKey(ctx context.Context, userID, key string) (*models.DependentProfile, error)
	MarkState(ctx context.Context, profileID string, state models.EntitlementState) error
	// ListPending возвращает pending-профили, созданные раньше createdBefore, старые первыми.
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]models.DependentProfile, error)
}

type postgresProfileRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewPostgresProfileRepository создает репозиторий профилей.
func NewPostgresProfileRepository(db *sqlx.DB, log *logger.Logger) ProfileRepository {
	return &postgresProfileRepo{db: db, log: log}
}

const profileColumns = `id, user_id, display_name, birth_year, season_id, club_id, team_id,
               redemption_key, entitlement_state, origin, created_at, updated_at`

func (r *postgresProfileRepo) Create(ctx context.Context, p *models.DependentProfile) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.EntitlementState == "" {
		p.EntitlementState = models.EntitlementPending
	}
	if p.Origin == "" {
		p.Origin = models.OriginSeat
	}

	err := db.WithTx(ctx, r.db, r.log, func(tx *sqlx.Tx) error {
		query := `
        INSERT INTO dependent_profiles (
            id, user_id, display_name, birth_year, season_id, club_id, team_id,
            redemption_key, entitlement_state, origin, created_at, updated_at
        ) VALUES (
            :id, :user_id, :display_name, :birth_year, :season_id, :club_id, :team_id,
            :redemption_key, :entitlement_state, :origin, :created_at, :updated_at
        )`
		if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
			return err
		}

		if p.SeasonID != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO profile_seasons (profile_id, season_id) VALUES ($1, $2)`, p.ID, *p.SeasonID); err != nil {
				return err
			}
		}

		for _, link := range profileLinks(p) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO profile_links (profile_id, kind, target_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
				p.ID, link.kind, link.target); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("repository: profile %s: %w", p.ID, ErrDuplicate)
		}
		r.log.Errorw("Failed to create dependent profile", "error", err, "userID", p.UserID)
		return fmt.Errorf("repository: failed to create profile: %w", err)
	}

	r.log.Debugw("Dependent profile created", "profileID", p.ID, "userID", p.UserID)
	return nil
}

type profileLink struct {
	kind   string
	target string
}

func profileLinks(p *models.DependentProfile) []profileLink {
	var links []profileLink
	if p.ClubID != nil {
		links = append(links, profileLink{"club", *p.ClubID})
	}
	if p.TeamID != nil {
		links = append(links, profileLink{"team", *p.TeamID})
	}
	for _, c := range p.CompetitionIDs {
		links = append(links, profileLink{"competition", c})
	}
	return links
}

func (r *postgresProfileRepo) GetByRedemptionKey(ctx context.Context, userID, key string) (*models.DependentProfile, error) {
	var p models.DependentProfile
	query := `SELECT ` + profileColumns + ` FROM dependent_profiles WHERE user_id = $1 AND redemption_key = $2`

	if err := r.db.GetContext(ctx, &p, query, userID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get profile by redemption key: %w", err)
	}
	return &p, nil
}

func (r *postgresProfileRepo) MarkState(ctx context.Context, profileID string, state models.EntitlementState) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dependent_profiles SET entitlement_state = $1, updated_at = now() WHERE id = $2`, state, profileID)
	if err != nil {
		return fmt.Errorf("repository: failed to update profile state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresProfileRepo) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]models.DependentProfile, error) {
	profiles := []models.DependentProfile{}
	query := `SELECT ` + profileColumns + `
        FROM dependent_profiles
        WHERE entitlement_state = 'pending' AND created_at < $1
        ORDER BY created_at
        LIMIT $2`

	if err := r.db.SelectContext(ctx, &profiles, query, createdBefore, limit); err != nil {
		return nil, fmt.Errorf("repository: failed to list pending profiles: %w", err)
	}
	return profiles, nil
}
