package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/teamtide/workforce-backend/internal/middleware"
	"github.com/teamtide/workforce-backend/internal/models"
	"github.com/teamtide/workforce-backend/internal/services"
)

// CampaignHandler handles campaign-related HTTP requests. Every route is
// role-gated inside the service layer.
type CampaignHandler struct {
	campaignService *services.CampaignService
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(campaignService *services.CampaignService) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService}
}

// RegisterCampaignRoutes registers campaign routes
func (h *CampaignHandler) RegisterCampaignRoutes(g *echo.Group) {
	g.POST("/campaigns", h.CreateCampaign)
	g.POST("/campaigns/:id/send", h.SendCampaign)
	g.GET("/campaigns", h.ListCampaigns)
	g.GET("/campaigns/:id", h.GetCampaignDetails)
}

// CreateCampaign persists a campaign in DRAFT.
func (h *CampaignHandler) CreateCampaign(c echo.Context) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	campaign, err := h.campaignService.CreateCampaign(c.Request().Context(), claims.OrganisationID, claims.UserID, claims.Role, req)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": campaign})
}

// SendCampaign triggers the audience fan-out for a DRAFT campaign.
func (h *CampaignHandler) SendCampaign(c echo.Context) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	delivered, err := h.campaignService.SendCampaign(c.Request().Context(), claims.OrganisationID, claims.UserID, claims.Role, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"delivered": delivered}})
}

// ListCampaigns returns a paginated campaign page, optionally status-filtered.
func (h *CampaignHandler) ListCampaigns(c echo.Context) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	take, _ := strconv.Atoi(c.QueryParam("take"))
	query := models.ListCampaignsQuery{Skip: skip, Take: take}
	if raw := c.QueryParam("status"); raw != "" {
		status := models.CampaignStatus(raw)
		switch status {
		case models.CampaignDraft, models.CampaignSending, models.CampaignSent, models.CampaignFailed:
			query.Status = &status
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "Unknown campaign status")
		}
	}

	page, err := h.campaignService.ListCampaigns(c.Request().Context(), claims.OrganisationID, claims.Role, query)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": page})
}

// GetCampaignDetails returns a campaign with computed recipient stats.
func (h *CampaignHandler) GetCampaignDetails(c echo.Context) error {
	claims := middleware.ClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	details, err := h.campaignService.GetCampaignDetails(c.Request().Context(), claims.OrganisationID, claims.Role, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": details})
}
