package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/domain"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
)

type updateProfileRequest struct {
	FullName      string `json:"full_name"`
	CoachingFocus string `json:"coaching_focus"`
	Timezone      string `json:"timezone"`
}

type businessProfileRequest struct {
	CompanyName string `json:"company_name"`
	Industry    string `json:"industry"`
	TeamSize    int    `json:"team_size"`
	Website     string `json:"website"`
	Challenges  string `json:"challenges"`
}

func (s *Server) handleGetProfile(c echo.Context) error {
	profile, err := s.svc.Profiles.Get(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newProfileResponse(profile))
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	profile, err := s.svc.Profiles.Update(c.Request().Context(), currentUserID(c), domain.ProfileUpdate{
		FullName:      req.FullName,
		CoachingFocus: req.CoachingFocus,
		Timezone:      req.Timezone,
	})
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newProfileResponse(profile))
}

func (s *Server) handleGetBusinessProfile(c echo.Context) error {
	bp, err := s.svc.Profiles.GetBusiness(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newBusinessProfileResponse(bp))
}

func (s *Server) handleUpdateBusinessProfile(c echo.Context) error {
	var req businessProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	bp, err := s.svc.Profiles.UpsertBusiness(c.Request().Context(), &domain.BusinessProfile{
		UserID:      currentUserID(c),
		CompanyName: req.CompanyName,
		Industry:    req.Industry,
		TeamSize:    req.TeamSize,
		Website:     req.Website,
		Challenges:  req.Challenges,
	})
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newBusinessProfileResponse(bp))
}
