package auth

import (
	"context"
	"time"

	"github.com/khoahotran/filmila/internal/application/service"
	"github.com/khoahotran/filmila/pkg/apperror"
	"github.com/khoahotran/filmila/pkg/auth"
)

type LogoutUseCase struct {
	revocations service.RevocationStore
	lifespan    time.Duration
}

func NewLogoutUseCase(revocations service.RevocationStore, jwtSvc *auth.JWTService) *LogoutUseCase {
	return &LogoutUseCase{revocations: revocations, lifespan: jwtSvc.TokenLifespan()}
}

// Execute denylists the presented token until it would have expired anyway.
func (uc *LogoutUseCase) Execute(ctx context.Context, claims *auth.CustomClaims) error {
	ctx, span := tracer.Start(ctx, "Logout")
	defer span.End()

	ttl := uc.lifespan
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := uc.revocations.RevokeToken(ctx, claims.TokenID(), ttl); err != nil {
		span.RecordError(err)
		return apperror.NewUpstreamUnavailable("revocation store", err)
	}
	return nil
}

// ExecuteAll revokes every token issued to the viewer up to now, always
// including the presented one.
func (uc *LogoutUseCase) ExecuteAll(ctx context.Context, claims *auth.CustomClaims) error {
	ctx, span := tracer.Start(ctx, "LogoutAll")
	defer span.End()

	before := time.Now()
	if iat := claims.IssuedAt; iat != nil && before.UnixMilli() <= iat.UnixMilli() {
		before = iat.Time.Add(time.Millisecond)
	}
	if err := uc.revocations.RevokeAllBefore(ctx, claims.ViewerID, before, uc.lifespan); err != nil {
		span.RecordError(err)
		return apperror.NewUpstreamUnavailable("revocation store", err)
	}
	return nil
}
