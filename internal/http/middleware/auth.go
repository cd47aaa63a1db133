package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/ideaforge-backend/internal/http/response"
	"github.com/yungbote/ideaforge-backend/internal/platform/apierr"
	"github.com/yungbote/ideaforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/ideaforge-backend/internal/services"
)

// anonNamespace is the fixed UUIDv5 namespace for deriving stable anonymous
// identities from client addresses.
var anonNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func setUserID(c *gin.Context, userID uuid.UUID) {
	ctx := c.Request.Context()
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil {
		rd = &ctxutil.RequestData{ClientAddr: c.ClientIP()}
	}
	rd.UserID = userID
	c.Request = c.Request.WithContext(ctxutil.WithRequestData(ctx, rd))
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(verifier services.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Fail(c, apierr.Unauthorized(errors.New("missing bearer token")))
			return
		}
		userID, err := verifier.Verify(token)
		if err != nil {
			response.Fail(c, err)
			return
		}
		setUserID(c, userID)
		c.Next()
	}
}

// OptionalAuth resolves an identity for endpoints open to anonymous callers.
// A valid token wins; otherwise the identity is a stable hash of the client
// address, so anonymous rate limits and dedup keys survive across requests.
func OptionalAuth(verifier services.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if userID, err := verifier.Verify(token); err == nil {
				setUserID(c, userID)
				c.Next()
				return
			}
		}
		setUserID(c, uuid.NewSHA1(anonNamespace, []byte(c.ClientIP())))
		c.Next()
	}
}

// CallerIdentity returns the rate-limit/dedup identity for the request.
func CallerIdentity(c *gin.Context) string {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.NewSHA1(anonNamespace, []byte(c.ClientIP())).String()
	}
	return rd.UserID.String()
}

// CallerID returns the authenticated user id, or uuid.Nil.
func CallerID(c *gin.Context) uuid.UUID {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		return uuid.Nil
	}
	return rd.UserID
}
