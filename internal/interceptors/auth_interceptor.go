package interceptors

import (
	"context"
	"strings"

	"github.com/Dhoini/Entitlement-service/internal/middleware" // Используем тот же пакет для ключа и валидатора
	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Методы, доступные без токена
var publicMethodPrefixes = []string{
	"/grpc.health.v1.Health/",
	"/grpc.reflection.",
}

type AuthInterceptor struct {
	log       *logger.Logger
	validator middleware.TokenValidator
}

func NewAuthInterceptor(log *logger.Logger, validator middleware.TokenValidator) *AuthInterceptor {
	return &AuthInterceptor{
		log:       log,
		validator: validator,
	}
}

// Unary возвращает UnaryServerInterceptor для проверки JWT.
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if isPublicMethod(info.FullMethod) {
			return handler(ctx, req)
		}

		newCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(newCtx, req)
	}
}

// Stream то же для потоковых методов (reflection работает через stream).
func (i *AuthInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if isPublicMethod(info.FullMethod) {
			return handler(srv, ss)
		}
		if _, err := i.authenticate(ss.Context(), info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

func (i *AuthInterceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		i.log.Warnw("gRPC auth: missing metadata", "method", method)
		return nil, status.Errorf(codes.Unauthenticated, "missing metadata")
	}

	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		i.log.Warnw("gRPC auth: missing authorization header", "method", method)
		return nil, status.Errorf(codes.Unauthenticated, "missing authorization header")
	}

	// Ожидаем "Bearer <token>"
	authHeader := authHeaders[0]
	if !strings.HasPrefix(authHeader, "Bearer ") {
		i.log.Warnw("gRPC auth: invalid authorization header format", "method", method)
		return nil, status.Errorf(codes.Unauthenticated, "invalid authorization header format")
	}

	claims, err := i.validator.Validate(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		i.log.Warnw("gRPC auth: invalid token", "method", method, "error", err)
		return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}

	userID := claims.Subject
	if userID == "" {
		i.log.Warnw("gRPC auth: user ID (sub) missing in token", "method", method)
		return nil, status.Errorf(codes.Unauthenticated, "User ID (sub) missing in token")
	}

	i.log.Debugw("User authenticated via gRPC", "userID", userID, "method", method)
	return context.WithValue(ctx, middleware.ContextUserIDKey, userID), nil
}

func isPublicMethod(method string) bool {
	for _, prefix := range publicMethodPrefixes {
		if strings.HasPrefix(method, prefix) {
			return true
		}
	}
	return false
}
