package grpc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	pkggrpc "github.com/JoeShih716/go-mem-custody/pkg/grpc"
)

// AuthConfig 憑證與身分的對應
// 呼叫者身分只來自這裡，不採用用戶端自己宣告的 x-caller-id
type AuthConfig struct {
	// Tokens API token -> 身分 (authorization: Bearer <token> 或 x-api-token)
	Tokens map[string]domain.Identity
	// CommonNames mTLS 用戶端憑證 CN -> 身分
	CommonNames map[string]domain.Identity
}

// TLSConfig 伺服器憑證，CertFile 為空時不啟用 TLS
type TLSConfig struct {
	CertFile     string
	KeyFile      string
	ClientCAFile string
}

var errUnknownToken = errors.New("unknown api token")

type authenticator struct {
	tokens      map[string]domain.Identity
	commonNames map[string]domain.Identity
}

func newAuthenticator(cfg AuthConfig) *authenticator {
	a := &authenticator{
		tokens:      make(map[string]domain.Identity, len(cfg.Tokens)),
		commonNames: make(map[string]domain.Identity, len(cfg.CommonNames)),
	}
	for token, id := range cfg.Tokens {
		if trimmed := strings.TrimSpace(token); trimmed != "" && id != "" {
			a.tokens[trimmed] = id
		}
	}
	for cn, id := range cfg.CommonNames {
		if trimmed := strings.TrimSpace(cn); trimmed != "" && id != "" {
			a.commonNames[trimmed] = id
		}
	}
	return a
}

// identify 依序檢查 token 與 mTLS 憑證
// 沒有任何憑證時為匿名身分；帶了不認識的 token 則拒絕
func (a *authenticator) identify(ctx context.Context) (domain.Identity, error) {
	if id, err := a.identifyByToken(ctx); err != nil || id != "" {
		return id, err
	}
	if id := a.identifyByMTLS(ctx); id != "" {
		return id, nil
	}
	return domain.AnonymousIdentity, nil
}

func (a *authenticator) identifyByToken(ctx context.Context) (domain.Identity, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}
	var presented []string
	for _, header := range md.Get(pkggrpc.AuthorizationMetadataKey) {
		if token := parseBearerToken(header); token != "" {
			presented = append(presented, token)
		}
	}
	for _, token := range md.Get(pkggrpc.APITokenMetadataKey) {
		if trimmed := strings.TrimSpace(token); trimmed != "" {
			presented = append(presented, trimmed)
		}
	}
	for _, token := range presented {
		if id, ok := a.tokens[token]; ok {
			return id, nil
		}
	}
	if len(presented) > 0 {
		return "", errUnknownToken
	}
	return "", nil
}

func (a *authenticator) identifyByMTLS(ctx context.Context) domain.Identity {
	if len(a.commonNames) == 0 {
		return ""
	}
	pr, ok := peer.FromContext(ctx)
	if !ok {
		return ""
	}
	info, ok := pr.AuthInfo.(credentials.TLSInfo)
	if !ok {
		return ""
	}
	// 只看通過 ClientCAs 驗證的憑證鏈
	for _, chain := range info.State.VerifiedChains {
		if len(chain) == 0 {
			continue
		}
		if id, ok := a.commonNames[strings.TrimSpace(chain[0].Subject.CommonName)]; ok {
			return id
		}
	}
	return ""
}

func (a *authenticator) unaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id, err := a.identify(ctx)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(context.WithValue(ctx, callerKey{}, id), req)
	}
}

func parseBearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(strings.TrimSpace(scheme), "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ServerCreds 建立 TLS 伺服器憑證選項
// 設定 ClientCAFile 時要求並驗證用戶端憑證 (mTLS)
// CertFile 為空時回傳 nil (不加密，僅供內網或測試)
func ServerCreds(cfg TLSConfig) (grpc.ServerOption, error) {
	certPath := strings.TrimSpace(cfg.CertFile)
	keyPath := strings.TrimSpace(cfg.KeyFile)
	if certPath == "" || keyPath == "" {
		if strings.TrimSpace(cfg.ClientCAFile) != "" {
			return nil, errors.New("mtls requires server certificate and key")
		}
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load tls keypair: %w", err)
	}
	tlsCfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.NoClientCert,
	}
	if caPath := strings.TrimSpace(cfg.ClientCAFile); caPath != "" {
		pem, err := os.ReadFile(caPath)
		if err != nil {
			return nil, fmt.Errorf("read client ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("parse client ca: invalid pem data")
		}
		tlsCfg.ClientCAs = pool
		tlsCfg.ClientAuth = tls.VerifyClientCertIfGiven
	}
	return grpc.Creds(credentials.NewTLS(tlsCfg)), nil
}
