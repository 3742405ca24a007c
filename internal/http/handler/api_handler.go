package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/shrtnr/internal/app/service"
	"github.com/sifan077/shrtnr/internal/http/middleware"
	"github.com/sifan077/shrtnr/internal/http/util"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger      *zap.Logger
	Links       service.LinkService
	Analytics   service.AnalyticsService
	Credentials service.CredentialService
	// BaseURL prefixes codes in short_url fields and QR codes.
	BaseURL string
}

// APIHandler implements the management API endpoints.
type APIHandler struct {
	logger      *zap.Logger
	links       service.LinkService
	analytics   service.AnalyticsService
	credentials service.CredentialService
	baseURL     string
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:      logger,
		links:       deps.Links,
		analytics:   deps.Analytics,
		credentials: deps.Credentials,
		baseURL:     deps.BaseURL,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api", middleware.Credential(h.credentials))
	{
		links := api.Group("/links")
		{
			links.Post("/", h.CreateLink)
			links.Get("/", h.ListLinks)
			links.Get("/:code", h.GetLinkStats)
			links.Delete("/:code", h.DeleteLink)
			links.Get("/:code/qr", h.GetQRCode)
		}

		// Paths kept from the first public release.
		api.Post("/shorten", h.CreateLink)
		urls := api.Group("/urls")
		{
			urls.Get("/", h.ListLinks)
			urls.Get("/:code", h.GetLinkStats)
			urls.Delete("/:code", h.DeleteLink)
			urls.Get("/:code/qr", h.GetQRCode)
		}

		keys := api.Group("/keys")
		{
			keys.Post("/", h.CreateKey)
			keys.Get("/", h.ListKeys)
			keys.Delete("/:id", h.RevokeKey)
		}

		api.Get("/stats", h.GlobalStats)
		api.Get("/trending", h.Trending)
	}
}

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	URL        string `json:"url"`
	CustomCode string `json:"custom_code,omitempty"`
}

// CreateLink handles POST /api/links
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	link, err := h.links.CreateLink(util.Context(c), service.CreateLinkInput{
		URL:        req.URL,
		CustomCode: req.CustomCode,
		Owner:      middleware.CredentialFrom(c),
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.JSON(newLinkResponse(*link, 0, h.baseURL))
}

// ListLinks handles GET /api/links. A credential scopes the list to its own links.
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	links, err := h.links.ListLinks(util.Context(c), service.ListLinksInput{
		Owner:  middleware.CredentialFrom(c),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}

	response := make([]LinkResponse, len(links))
	for i, link := range links {
		response[i] = newLinkResponse(link.Link, link.ClickCount, h.baseURL)
	}
	return c.JSON(response)
}

// GetLinkStats handles GET /api/links/:code
func (h *APIHandler) GetLinkStats(c *fiber.Ctx) error {
	stats, err := h.analytics.LinkStats(util.Context(c), c.Params("code"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(newLinkStatsResponse(stats))
}

// DeleteLink handles DELETE /api/links/:code
func (h *APIHandler) DeleteLink(c *fiber.Ctx) error {
	if err := h.links.DeleteLink(util.Context(c), c.Params("code"), middleware.CredentialFrom(c)); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "link deleted"})
}

// GetQRCode handles GET /api/links/:code/qr
func (h *APIHandler) GetQRCode(c *fiber.Ctx) error {
	link, err := h.links.ResolveLink(util.Context(c), c.Params("code"))
	if err != nil {
		return writeError(c, h.logger, err)
	}

	uri, err := service.QRCodeDataURI(util.ShortURL(h.baseURL, link.Code))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(QRResponse{QRCode: uri})
}

// GlobalStats handles GET /api/stats
func (h *APIHandler) GlobalStats(c *fiber.Ctx) error {
	stats, err := h.analytics.GlobalStats(util.Context(c))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(GlobalStatsResponse{
		TotalURLs:   stats.TotalLinks,
		TotalClicks: stats.TotalClicks,
		URLsToday:   stats.LinksCreatedToday,
		ClicksToday: stats.ClicksToday,
	})
}

// Trending handles GET /api/trending?limit=
func (h *APIHandler) Trending(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", service.DefaultTrendingSize)
	if limit > maxListLimit {
		limit = maxListLimit
	}

	items, err := h.analytics.Trending(util.Context(c), limit)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	response := make([]TrendingResponse, len(items))
	for i, item := range items {
		response[i] = newTrendingResponse(item, h.baseURL)
	}
	return c.JSON(response)
}
