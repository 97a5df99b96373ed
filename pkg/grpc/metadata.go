package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// CallerMetadataKey 呼叫者身分放在 metadata 的 key
// 只有信任網路內的服務 (例如帳本模擬器) 會採用，託管服務以憑證決定身分
const CallerMetadataKey = "x-caller-id"

// AuthorizationMetadataKey Bearer token
const AuthorizationMetadataKey = "authorization"

// APITokenMetadataKey 另一種放 API token 的 key
const APITokenMetadataKey = "x-api-token"

// RequestIDMetadataKey 請求 ID 放在 metadata 的 key
const RequestIDMetadataKey = "x-request-id"

// WithCaller 把呼叫者身分附加到 outgoing metadata
func WithCaller(ctx context.Context, caller string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, CallerMetadataKey, caller)
}

// WithBearerToken 把 API token 以 "authorization: Bearer <token>" 附加到 outgoing metadata
func WithBearerToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, AuthorizationMetadataKey, "Bearer "+token)
}

// CallerFromIncoming 從 incoming metadata 取出呼叫者身分
// 沒有或為空字串時 ok 為 false
func CallerFromIncoming(ctx context.Context) (string, bool) {
	return firstIncoming(ctx, CallerMetadataKey)
}

// RequestIDFromIncoming 從 incoming metadata 取出請求 ID
func RequestIDFromIncoming(ctx context.Context) (string, bool) {
	return firstIncoming(ctx, RequestIDMetadataKey)
}

func firstIncoming(ctx context.Context, key string) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get(key)
	if len(values) == 0 || values[0] == "" {
		return "", false
	}
	return values[0], true
}
