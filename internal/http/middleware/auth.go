package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/shrtnr/internal/app/model"
)

const (
	APIKeyHeader  = "X-API-Key"
	credentialKey = "credential"
)

// Authenticator resolves a bearer token to an active credential.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Credential, error)
}

// Credential attaches the caller's credential, if any, to the request.
// A missing, unknown or revoked key leaves the request anonymous.
func Credential(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(APIKeyHeader)
		if token == "" {
			return c.Next()
		}

		ctx := c.UserContext()
		if ctx == nil {
			ctx = context.Background()
		}
		cred, err := auth.Authenticate(ctx, token)
		if err != nil {
			return err
		}
		if cred != nil {
			c.Locals(credentialKey, cred)
		}
		return c.Next()
	}
}

// CredentialFrom returns the credential attached by Credential, or nil.
func CredentialFrom(c *fiber.Ctx) *model.Credential {
	cred, _ := c.Locals(credentialKey).(*model.Credential)
	return cred
}
