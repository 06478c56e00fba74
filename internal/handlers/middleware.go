package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// operatorCtxKey holds the authenticated operator id on hub API requests.
const operatorCtxKey = "operatorId"

var (
	errNoAuthHeader  = errors.New("missing Authorization header")
	errBadAuthHeader = errors.New("invalid Authorization header format")
)

// operatorMiddleware admits hub API requests carrying a valid operator token.
func (h *Handler) operatorMiddleware(c *gin.Context) {
	token, err := bearerToken(c.GetHeader("Authorization"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	operatorID, err := h.services.ParseToken(token)
	if err != nil {
		h.log.Debugw("operator_token_rejected", "path", c.FullPath(), "err", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}
	c.Set(operatorCtxKey, operatorID)
	c.Next()
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoAuthHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", errBadAuthHeader
	}
	return token, nil
}

// metricsMiddleware records request count and latency per matched route.
func (h *Handler) metricsMiddleware(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	h.metrics.ObserveHTTP(route, c.Writer.Status(), time.Since(start))
}
