package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Dhoini/Entitlement-service/internal/middleware"
	"github.com/Dhoini/Entitlement-service/internal/services"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/Dhoini/Entitlement-service/pkg/req"
	"github.com/Dhoini/Entitlement-service/pkg/res"

	"github.com/gin-gonic/gin"
)

// ProfileCreator создает профили спортсменов со списанием места.
type ProfileCreator interface {
	CreateDependentProfile(ctx context.Context, userID string, in services.ProfileInput, opts services.RedeemOptions) (string, error)
}

// SeatReader сводка мест пользователя.
type SeatReader interface {
	Summary(ctx context.Context, userID string, windowDays int) (*services.SeatSummary, error)
}

// ProfileHandler профили и места текущего пользователя.
type ProfileHandler struct {
	profiles ProfileCreator
	seats    SeatReader
	log      *logger.Logger
}

func NewProfileHandler(profiles ProfileCreator, seats SeatReader, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		seats:    seats,
		log:      log,
	}
}

type CreateProfileRequest struct {
	DisplayName    string   `json:"display_name" validate:"required,max=100"`
	BirthYear      *int     `json:"birth_year" validate:"omitempty,gte=1900"`
	SeasonID       string   `json:"season_id" validate:"omitempty,max=64"`
	ClubID         string   `json:"club_id" validate:"omitempty,max=64"`
	TeamID         string   `json:"team_id" validate:"omitempty,max=64"`
	CompetitionIDs []string `json:"competition_ids" validate:"omitempty,dive,required,max=64"`
	AccessCode     string   `json:"access_code" validate:"omitempty,max=64"`
	PlanID         string   `json:"plan_id" validate:"omitempty,max=64"`
}

type CreateProfileResponse struct {
	ProfileID string `json:"profile_id"`
}

// CreateProfile обрабатывает POST /profiles
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	userID := middleware.UserID(c)

	body, err := req.HandleBody[CreateProfileRequest](c.Writer, c.Request, h.log)
	if err != nil {
		c.Abort()
		return
	}

	profileID, err := h.profiles.CreateDependentProfile(c.Request.Context(), userID,
		services.ProfileInput{
			DisplayName:    body.DisplayName,
			BirthYear:      body.BirthYear,
			SeasonID:       body.SeasonID,
			ClubID:         body.ClubID,
			TeamID:         body.TeamID,
			CompetitionIDs: body.CompetitionIDs,
		},
		services.RedeemOptions{
			AccessCode:     body.AccessCode,
			PlanID:         body.PlanID,
			IdempotencyKey: c.GetHeader("Idempotency-Key"),
		})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	res.JsonResponse(c.Writer, CreateProfileResponse{ProfileID: profileID}, http.StatusCreated)
}

// GetSeats обрабатывает GET /seats?window_days=
func (h *ProfileHandler) GetSeats(c *gin.Context) {
	windowDays := -1
	if raw := c.Query("window_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			res.JsonResponse(c.Writer, res.ErrorResponse{Error: "window_days must be a non-negative integer"}, http.StatusBadRequest)
			c.Abort()
			return
		}
		windowDays = days
	}

	summary, err := h.seats.Summary(c.Request.Context(), middleware.UserID(c), windowDays)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	res.JsonResponse(c.Writer, summary, http.StatusOK)
}
