package models

import "time"

// EntitlementState состояние списания места для профиля спортсмена.
type EntitlementState string

const (
	EntitlementPending   EntitlementState = "pending"   // профиль создан, место еще не подтверждено
	EntitlementConfirmed EntitlementState = "confirmed" // место списано
	EntitlementOrphaned  EntitlementState = "orphaned"  // место так и не удалось списать
)

// ProfileOrigin способ, которым для профиля списывается место.
type ProfileOrigin string

const (
	OriginSeat       ProfileOrigin = "seat"        // свободное место из купленных
	OriginAccessCode ProfileOrigin = "access_code" // код доступа
)

// DependentProfile — профиль спортсмена, зарегистрированный опекуном.
type DependentProfile struct {
	ID               string           `db:"id" json:"id"`
	UserID           string           `db:"user_id" json:"user_id"`
	DisplayName      string           `db:"display_name" json:"display_name"`
	BirthYear        *int             `db:"birth_year" json:"birth_year,omitempty"`
	SeasonID         *string          `db:"season_id" json:"season_id,omitempty"`
	ClubID           *string          `db:"club_id" json:"club_id,omitempty"`
	TeamID           *string          `db:"team_id" json:"team_id,omitempty"`
	CompetitionIDs   []string         `db:"-" json:"competition_ids,omitempty"`
	RedemptionKey    string           `db:"redemption_key" json:"-"`
	EntitlementState EntitlementState `db:"entitlement_state" json:"entitlement_state"`
	Origin           ProfileOrigin    `db:"origin" json:"origin"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// ProcedureResult — ответ хранимых процедур create_code_subscription / redeem_* / assign_*.
type ProcedureResult struct {
	OK      bool       `db:"ok"`
	Message string     `db:"message"`
	EndsAt  *time.Time `db:"ends_at"`
}
