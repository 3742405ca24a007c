package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/shrtnr/internal/app/service"
	"github.com/sifan077/shrtnr/internal/http/util"
)

// CreateKeyRequest represents the request body for creating an API key.
type CreateKeyRequest struct {
	Name string `json:"name"`
}

// CreateKey handles POST /api/keys. The full key is only ever returned here.
func (h *APIHandler) CreateKey(c *fiber.Ctx) error {
	var req CreateKeyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	cred, err := h.credentials.CreateCredential(util.Context(c), req.Name)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(newCredentialResponse(*cred, cred.Token))
}

// ListKeys handles GET /api/keys
func (h *APIHandler) ListKeys(c *fiber.Ctx) error {
	creds, err := h.credentials.ListCredentials(util.Context(c))
	if err != nil {
		return writeError(c, h.logger, err)
	}

	response := make([]CredentialResponse, len(creds))
	for i, cred := range creds {
		response[i] = newCredentialResponse(cred, service.MaskToken(cred.Token))
	}
	return c.JSON(response)
}

// RevokeKey handles DELETE /api/keys/:id
func (h *APIHandler) RevokeKey(c *fiber.Ctx) error {
	if err := h.credentials.RevokeCredential(util.Context(c), c.Params("id")); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "API key revoked"})
}
