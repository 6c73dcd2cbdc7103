package handlers

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/docuchat/backend/pkg/logger"
)

type AuthHandler struct {
	username string
	password string
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthHandler(username, password, secret string, tokenTTLHours int) *AuthHandler {
	if tokenTTLHours <= 0 {
		tokenTTLHours = 24
	}
	return &AuthHandler{
		username: username,
		password: password,
		secret:   []byte(secret),
		tokenTTL: time.Duration(tokenTTLHours) * time.Hour,
	}
}

// HandleVerifyCredentials exchanges a username/password pair for a signed
// bearer token. Comparison is constant-time so response timing does not leak
// which field was wrong.
func (h *AuthHandler) HandleVerifyCredentials(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"msg": "Invalid request body",
		})
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) == 1

	if !userOK || !passOK {
		logger.Warn("Credential verification failed", zap.String("ip", c.IP()))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"authenticated": false,
		})
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": req.Username,
		"iat": now.Unix(),
		"exp": now.Add(h.tokenTTL).Unix(),
	})

	signed, err := token.SignedString(h.secret)
	if err != nil {
		logger.Error("Failed to sign token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"msg": "Failed to issue token",
		})
	}

	return c.JSON(fiber.Map{
		"authenticated": true,
		"token":         signed,
	})
}
