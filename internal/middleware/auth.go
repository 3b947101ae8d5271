package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/benvon/focus-quest/internal/database"
	logpkg "github.com/benvon/focus-quest/internal/logger"
	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/request"
	"github.com/benvon/focus-quest/internal/services/oidc"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenVerifier verifies bearer tokens
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*oidc.Claims, error)
}

// UserStore is the user storage the auth middleware needs
type UserStore interface {
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// Auth validates the bearer token and attaches the matching user, creating it on first sight.
func Auth(verifier TokenVerifier, users UserStore, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Missing Authorization header", logger)
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Invalid Authorization header format", logger)
				return
			}

			ctx := r.Context()
			claims, err := verifier.Verify(ctx, token)
			if err != nil {
				logger.Info("token_verification_failed", zap.String("error", logpkg.SanitizeError(err)))
				respondErrorJSON(w, r, http.StatusUnauthorized, "Invalid or expired token", logger)
				return
			}

			user, err := resolveUser(ctx, users, claims, logger)
			if err != nil {
				logger.Error("user_resolution_failed", zap.Error(err))
				respondErrorJSON(w, r, http.StatusInternalServerError, "Failed to load user", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func resolveUser(ctx context.Context, users UserStore, claims *oidc.Claims, logger *zap.Logger) (*models.User, error) {
	user, err := users.GetByProviderID(ctx, claims.Sub)
	if errors.Is(err, database.ErrNotFound) {
		sub, name := claims.Sub, claims.Name
		user = &models.User{
			ID:            uuid.New(),
			Email:         claims.Email,
			ProviderID:    &sub,
			EmailVerified: claims.EmailVerified,
		}
		if name != "" {
			user.Name = &name
		}
		err = users.Create(ctx, user)
		if errors.Is(err, database.ErrUniqueViolation) {
			// a concurrent first request created it
			return users.GetByProviderID(ctx, claims.Sub)
		}
		if err != nil {
			return nil, err
		}
		logger.Info("user_created", zap.String("user_id", user.ID.String()))
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	changed := false
	if claims.Email != "" && user.Email != claims.Email {
		user.Email = claims.Email
		changed = true
	}
	if claims.Name != "" && (user.Name == nil || *user.Name != claims.Name) {
		name := claims.Name
		user.Name = &name
		changed = true
	}
	if changed {
		if err := users.Update(ctx, user); err != nil {
			logger.Warn("user_profile_sync_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}
	return user, nil
}
