package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sifan077/shrtnr/internal/app/model"
	"github.com/sifan077/shrtnr/internal/app/service"
	"github.com/sifan077/shrtnr/internal/http/util"
	"github.com/sifan077/shrtnr/internal/http/view"
	"go.uber.org/zap"
)

const defaultRecordTimeout = 5 * time.Second

// RedirectDeps groups dependencies required by redirect handlers.
type RedirectDeps struct {
	Logger *zap.Logger
	Links  service.LinkService
	Clicks service.ClickRecorder
	// BaseURL is linked from the interstitial page.
	BaseURL     string
	ProxyHeader string
	// Interstitial serves the HTML hop page unless the caller asks for a direct redirect.
	Interstitial  bool
	RecordTimeout time.Duration
}

// RedirectHandler resolves codes and records clicks.
type RedirectHandler struct {
	logger        *zap.Logger
	links         service.LinkService
	clicks        service.ClickRecorder
	baseURL       string
	proxyHeader   string
	interstitial  bool
	recordTimeout time.Duration
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.RecordTimeout
	if timeout <= 0 {
		timeout = defaultRecordTimeout
	}
	return &RedirectHandler{
		logger:        logger,
		links:         deps.Links,
		clicks:        deps.Clicks,
		baseURL:       deps.BaseURL,
		proxyHeader:   deps.ProxyHeader,
		interstitial:  deps.Interstitial,
		recordTimeout: timeout,
	}
}

// Register wires redirect routes onto the provided router.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/:code", h.Resolve)
}

// Resolve handles GET /:code. The click is recorded off the response path.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	link, err := h.links.ResolveLink(util.Context(c), c.Params("code"))
	if err != nil {
		return writeError(c, h.logger, err)
	}

	// fiber reuses request buffers once the handler returns
	event := model.NewClickEvent(link,
		utils.CopyString(util.ClientIP(c, h.proxyHeader)),
		utils.CopyString(c.Get(fiber.HeaderUserAgent)),
		utils.CopyString(c.Get(fiber.HeaderReferer)),
	)
	go h.record(event)

	if !h.interstitial || util.WantsDirect(c) {
		h.logger.Debug("redirecting short link", zap.String("code", link.Code), zap.String("target", link.Destination))
		return c.Redirect(link.Destination, fiber.StatusTemporaryRedirect)
	}

	html, err := view.RenderRedirectPage(view.RedirectPageData{
		Code:        link.Code,
		Destination: link.Destination,
		ServiceURL:  h.baseURL,
	})
	if err != nil {
		h.logger.Error("failed to render redirect page", zap.Error(err))
		return c.Redirect(link.Destination, fiber.StatusTemporaryRedirect)
	}
	return c.Type("html", "utf-8").SendString(html)
}

func (h *RedirectHandler) record(event model.ClickEvent) {
	if h.clicks == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.recordTimeout)
	defer cancel()

	if err := h.clicks.Record(ctx, event); err != nil {
		h.logger.Error("failed to record click",
			zap.String("id", event.ID),
			zap.String("code", event.Code),
			zap.Error(err))
	}
}
