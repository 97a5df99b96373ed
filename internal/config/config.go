package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-mem-custody/pkg/logger"
	"github.com/JoeShih716/go-mem-custody/pkg/mysql"
)

// EngineType 狀態引擎種類
type EngineType string

const (
	// EngineMutex RWMutex 保護的記憶體狀態
	EngineMutex EngineType = "mutex"
	// EngineLoop 單一 goroutine 的核心迴圈 (LMAX)
	EngineLoop EngineType = "loop"
)

// StorageDriver 快照儲存方式
type StorageDriver string

const (
	StorageFile  StorageDriver = "file"
	StorageMySQL StorageDriver = "mysql"
)

// LedgerMode 外部帳本的連線方式
type LedgerMode string

const (
	// LedgerGrpc 連到 Target 的帳本服務
	LedgerGrpc LedgerMode = "grpc"
	// LedgerEmbedded 行程內的模擬帳本，開發用
	LedgerEmbedded LedgerMode = "embedded"
)

// Config 託管服務的完整設定
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Engine  EngineConfig  `yaml:"engine"`
	GRPC    GRPCConfig    `yaml:"grpc"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     logger.Config `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	MySQL   mysql.Config  `yaml:"mysql"`
}

// ServiceConfig 服務身分與特權白名單
type ServiceConfig struct {
	// Identity 本服務在帳本上的身分
	Identity string `yaml:"identity"`
	// Privileged 可以呼叫特權操作的身分
	Privileged []string `yaml:"privileged"`
	// TransferFee 每次轉帳的帳本手續費
	TransferFee uint64 `yaml:"transfer_fee"`
}

type EngineConfig struct {
	Type   EngineType `yaml:"type"`
	Buffer int        `yaml:"buffer"` // loop 引擎的輸送帶容量
}

type GRPCConfig struct {
	Listen    string     `yaml:"listen"`
	RateLimit float64    `yaml:"rate_limit"` // 每秒請求數，0 表示不限制
	RateBurst int        `yaml:"rate_burst"`
	Auth      AuthConfig `yaml:"auth"`
	TLS       TLSConfig  `yaml:"tls"`
}

// AuthConfig 呼叫者身分的來源
// 身分只由伺服器端設定的 token 或用戶端憑證 CN 決定
type AuthConfig struct {
	Tokens    []TokenBinding    `yaml:"tokens"`
	ClientCNs []ClientCNBinding `yaml:"client_cns"`
}

type TokenBinding struct {
	Identity string `yaml:"identity"`
	Token    string `yaml:"token"`
}

type ClientCNBinding struct {
	Identity   string `yaml:"identity"`
	CommonName string `yaml:"common_name"`
}

type TLSConfig struct {
	CertFile     string `yaml:"cert_file"`
	KeyFile      string `yaml:"key_file"`
	ClientCAFile string `yaml:"client_ca_file"` // 設定後啟用 mTLS
}

// TokenMap 回傳 token -> 身分
func (a AuthConfig) TokenMap() map[string]string {
	out := make(map[string]string, len(a.Tokens))
	for _, b := range a.Tokens {
		out[b.Token] = b.Identity
	}
	return out
}

// CommonNameMap 回傳憑證 CN -> 身分
func (a AuthConfig) CommonNameMap() map[string]string {
	out := make(map[string]string, len(a.ClientCNs))
	for _, b := range a.ClientCNs {
		out[b.CommonName] = b.Identity
	}
	return out
}

type LedgerConfig struct {
	Mode    LedgerMode    `yaml:"mode"`
	Target  string        `yaml:"target"`
	Timeout time.Duration `yaml:"timeout"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // 空字串表示不啟動
}

type StorageConfig struct {
	Driver StorageDriver `yaml:"driver"`
	Path   string        `yaml:"path"` // file 使用
	Keep   int           `yaml:"keep"` // mysql 保留的快照數
}

// Load 讀取設定檔
// 1. 若存在 .env 先載入 (不覆蓋已存在的環境變數)
// 2. 展開 yaml 內的 ${VAR}
// 3. 補齊預設值並檢查
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse 解析 yaml 內容
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Service.TransferFee == 0 {
		c.Service.TransferFee = 10_000
	}
	if c.Engine.Type == "" {
		c.Engine.Type = EngineMutex
	}
	if c.Engine.Buffer == 0 {
		c.Engine.Buffer = 1000
	}
	if c.GRPC.Listen == "" {
		c.GRPC.Listen = ":50051"
	}
	if c.Ledger.Mode == "" {
		c.Ledger.Mode = LedgerGrpc
	}
	if c.Ledger.Timeout == 0 {
		c.Ledger.Timeout = 10 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageFile
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "custody.snapshot"
	}

	// 補全 MySQL 預設配置 (如果 yaml 沒寫)
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.MaxOpenConns == 0 {
		c.MySQL.MaxOpenConns = 100
	}
	if c.MySQL.MaxIdleConns == 0 {
		c.MySQL.MaxIdleConns = 10
	}
	if c.MySQL.ConnMaxLifetime == 0 {
		c.MySQL.ConnMaxLifetime = 30 * time.Minute
	}
}

// Validate 檢查必要欄位
func (c *Config) Validate() error {
	if c.Service.Identity == "" {
		return errors.New("service.identity is required")
	}
	switch c.Engine.Type {
	case EngineMutex, EngineLoop:
	default:
		return fmt.Errorf("unknown engine.type %q", c.Engine.Type)
	}
	switch c.Ledger.Mode {
	case LedgerGrpc:
		if c.Ledger.Target == "" {
			return errors.New("ledger.target is required in grpc mode")
		}
	case LedgerEmbedded:
	default:
		return fmt.Errorf("unknown ledger.mode %q", c.Ledger.Mode)
	}
	if err := c.GRPC.validateAuth(); err != nil {
		return err
	}
	switch c.Storage.Driver {
	case StorageFile:
	case StorageMySQL:
		if c.MySQL.Host == "" {
			return errors.New("mysql.host is required when storage.driver is mysql")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}

func (g GRPCConfig) validateAuth() error {
	tokens := make(map[string]struct{}, len(g.Auth.Tokens))
	for i, b := range g.Auth.Tokens {
		if strings.TrimSpace(b.Identity) == "" || strings.TrimSpace(b.Token) == "" {
			return fmt.Errorf("grpc.auth.tokens[%d]: identity and token are required", i)
		}
		if _, dup := tokens[b.Token]; dup {
			return fmt.Errorf("grpc.auth.tokens[%d]: duplicate token", i)
		}
		tokens[b.Token] = struct{}{}
	}

	cns := make(map[string]struct{}, len(g.Auth.ClientCNs))
	for i, b := range g.Auth.ClientCNs {
		if strings.TrimSpace(b.Identity) == "" || strings.TrimSpace(b.CommonName) == "" {
			return fmt.Errorf("grpc.auth.client_cns[%d]: identity and common_name are required", i)
		}
		if _, dup := cns[b.CommonName]; dup {
			return fmt.Errorf("grpc.auth.client_cns[%d]: duplicate common_name %q", i, b.CommonName)
		}
		cns[b.CommonName] = struct{}{}
	}

	if (g.TLS.CertFile == "") != (g.TLS.KeyFile == "") {
		return errors.New("grpc.tls.cert_file and grpc.tls.key_file must be set together")
	}
	if g.TLS.ClientCAFile != "" && g.TLS.CertFile == "" {
		return errors.New("grpc.tls.client_ca_file requires a server certificate")
	}
	if len(g.Auth.ClientCNs) > 0 && g.TLS.ClientCAFile == "" {
		return errors.New("grpc.auth.client_cns requires grpc.tls.client_ca_file")
	}
	return nil
}
