package grpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	pkggrpc "github.com/JoeShih716/go-mem-custody/pkg/grpc"
)

type callerKey struct{}

// CallerFromContext 取得驗證後的呼叫者身分
// 只採用認證攔截器放進 ctx 的值，沒有時為匿名身分
func CallerFromContext(ctx context.Context) domain.Identity {
	if id, ok := ctx.Value(callerKey{}).(domain.Identity); ok && id != "" {
		return id
	}
	return domain.AnonymousIdentity
}

// InterceptorConfig 攔截器設定
type InterceptorConfig struct {
	Logger *logrus.Logger
	// Auth 憑證與身分對應，未設定時所有呼叫都是匿名身分
	Auth AuthConfig
	// RateLimit 每秒允許的請求數，<= 0 表示不限制
	RateLimit float64
	// RateBurst 瞬間最多可超出的請求數
	RateBurst int
}

// Interceptors 依序安裝: 認證 -> 日誌 -> panic 復原 -> 限流
func Interceptors(cfg InterceptorConfig) []grpc.ServerOption {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logger.WithField("component", "grpc")

	unary := []grpc.UnaryServerInterceptor{
		newAuthenticator(cfg.Auth).unaryInterceptor(),
		loggingUnaryInterceptor(log),
		recoveryUnaryInterceptor(log),
	}
	if limiter := newRequestLimiter(cfg.RateLimit, cfg.RateBurst); limiter != nil {
		unary = append(unary, limiter.unaryInterceptor())
	}
	return []grpc.ServerOption{grpc.ChainUnaryInterceptor(unary...)}
}

func loggingUnaryInterceptor(log *logrus.Entry) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (_ any, err error) {
		start := time.Now()
		requestID, ok := pkggrpc.RequestIDFromIncoming(ctx)
		if !ok {
			requestID = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(pkggrpc.RequestIDMetadataKey, requestID))
		defer func() {
			log.WithFields(logrus.Fields{
				"method":     info.FullMethod,
				"caller":     CallerFromContext(ctx),
				"request_id": requestID,
				"code":       status.Code(err).String(),
				"duration":   time.Since(start),
			}).Debug("grpc unary")
		}()
		return handler(ctx, req)
	}
}

func recoveryUnaryInterceptor(log *logrus.Entry) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (_ any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"method": info.FullMethod,
					"panic":  r,
				}).Error("panic in unary handler")
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

type requestLimiter struct {
	limiter *rate.Limiter
}

func newRequestLimiter(perSecond float64, burst int) *requestLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &requestLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *requestLimiter) unaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !r.limiter.Allow() {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}
