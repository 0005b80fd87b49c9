// Package auth resolves the caller identity of every request.
//
// A valid bearer token identifies an account. Without one the caller is an
// anonymous session named by the session cookie. A caller without the
// cookie gets one whose value is derived from its device fingerprint, so
// clients that refuse cookies keep the same session.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"askdata/pkg/domain"
	"askdata/pkg/platform/middleware/device"
	"askdata/pkg/requestcontext"
)

// DefaultCookieName names the anonymous session cookie.
const DefaultCookieName = "askdata_session"

const sessionMaxAge = 365 * 24 * 60 * 60

// sessionNamespace seeds the name-based session UUIDs.
var sessionNamespace = uuid.MustParse("8d3c4b52-8a1e-4f8f-9c55-2f4b8f6f2d10")

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	Subject string
	JTI     string
}

// Options configures Identify.
type Options struct {
	CookieName   string
	CookieSecure bool
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// Identify attaches the caller identity to the request context. A nil
// validator treats every caller as anonymous. A present but invalid bearer
// token is rejected with 401 rather than downgraded to anonymous.
func Identify(validator JWTValidator, opts Options, logger *slog.Logger) func(http.Handler) http.Handler {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if token, ok := strings.CutPrefix(authHeader, bearerPrefix); ok && validator != nil {
				claims, err := validator.ValidateToken(strings.TrimSpace(token))
				if err != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
					return
				}
				identity, err := domain.NewAccountIdentity(claims.Subject)
				if err != nil {
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid token subject")
					return
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithIdentity(ctx, identity)))
				return
			}

			session := sessionFromCookie(r, opts.CookieName)
			if session == "" {
				fp := device.Fingerprint(requestcontext.UserAgent(ctx), requestcontext.ClientIP(ctx))
				session = uuid.NewSHA1(sessionNamespace, []byte(fp)).String()
				http.SetCookie(w, &http.Cookie{
					Name:     opts.CookieName,
					Value:    session,
					Path:     "/",
					MaxAge:   sessionMaxAge,
					HttpOnly: true,
					Secure:   opts.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			identity, err := domain.NewAnonymousIdentity(session)
			if err != nil {
				logger.ErrorContext(ctx, "anonymous identity rejected", "error", err, "request_id", requestID)
				writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to identify caller")
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithIdentity(ctx, identity)))
		})
	}
}

// sessionFromCookie returns the session cookie value when it is a UUID.
func sessionFromCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

// RequireAccount rejects anonymous callers.
func RequireAccount(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity := requestcontext.Identity(ctx)
			if identity.IsZero() || identity.IsAnonymous() {
				logger.WarnContext(ctx, "unauthorized access - account required",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
