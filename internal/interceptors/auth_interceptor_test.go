package interceptors

import (
	"context"
	"testing"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/middleware"
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var secret = []byte("test-secret")

func signToken(t *testing.T, sub string) string {
	t.Helper()
	claims := middleware.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func TestUnaryInterceptor(t *testing.T) {
	interceptor := NewAuthInterceptor(logger.NewNop(), &middleware.DefaultTokenValidator{Secret: secret}).Unary()

	var gotUser any
	handler := func(ctx context.Context, _ interface{}) (interface{}, error) {
		gotUser = ctx.Value(middleware.ContextUserIDKey)
		return "ok", nil
	}
	private := &grpc.UnaryServerInfo{FullMethod: "/entitlement.v1.EntitlementService/Seats"}

	t.Run("missing token", func(t *testing.T) {
		_, err := interceptor(context.Background(), nil, private, handler)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("valid token", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(),
			metadata.Pairs("authorization", "Bearer "+signToken(t, "user-1")))
		out, err := interceptor(ctx, nil, private, handler)
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
		assert.Equal(t, "user-1", gotUser)
	})

	t.Run("health is public", func(t *testing.T) {
		_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, handler)
		assert.NoError(t, err)
	})
}
