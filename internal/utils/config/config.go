package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/pendulum-chain/vortex-sub005/internal/consts"
	"github.com/pendulum-chain/vortex-sub005/internal/types/environments"
)

type AppConfig struct {
	Environment     environments.Environment
	ApiServer       ApiServerConfig
	Postgres        DBConnection
	Redis           RedisConfig
	Vault           VaultConfig
	SigningService  SigningServiceConfig
	Pendulum        PendulumConfig
	AssetHub        AssetHubConfig
	Moonbeam        MoonbeamConfig
	Stellar         StellarConfig
	Squid           SquidConfig
	BRLA            BRLAConfig
	Engine          EngineConfig
	AuditWebhookURL string
}

type ApiServerConfig struct {
	AllowedOrigins string
	Port           string
}

type DBConnection struct {
	Host string
	Port string
	User string
	Name string
	Pass string

	SSLMode string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type VaultConfig struct {
	Addr         string
	Role         string
	KVSecretPath string
	Token        string
}

type SigningServiceConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type PendulumConfig struct {
	GatewayURL string
	// minimum native balance (raw) an ephemeral needs before it can pay fees
	FundingMinimumRaw string
	NablaRouter       string
	FundingAccount    string
}

type AssetHubConfig struct {
	GatewayURL string
}

type MoonbeamConfig struct {
	RPCURL            string
	ChainID           int64
	ReceiverContract  string
	XTokensPrecompile string
	SquidRouter       string
	GasLimit          uint64
	XcmWeight         uint64
}

type StellarConfig struct {
	HorizonURL        string
	NetworkPassphrase string
	BaseFee           int64
}

type SquidConfig struct {
	URL          string
	IntegratorID string
}

type BRLAConfig struct {
	URL    string
	APIKey string
}

type EngineConfig struct {
	RetryDelay      time.Duration
	FailureTimeout  time.Duration
	RecoveryTimeout time.Duration
	TickInterval    time.Duration
	LeaseTTL        time.Duration
	PollInterval    time.Duration
	RedeemTimeout   time.Duration
	SwapDeadline    time.Duration
	StellarMaxTime  time.Duration
	// HTTPTimeout bounds a single request to any external collaborator.
	HTTPTimeout time.Duration
}

func New() *AppConfig {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// this will not override env variables if they already exist
	godotenv.Load(".env." + env)

	return &AppConfig{
		Environment: environments.Environment(env),
		ApiServer: ApiServerConfig{
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
			Port:           envVarOrDefault("PORT", "8080"),
		},
		Postgres: DBConnection{
			Host:    os.Getenv("DB_HOST"),
			Port:    os.Getenv("DB_PORT"),
			User:    os.Getenv("DB_USER"),
			Name:    os.Getenv("DB_NAME"),
			Pass:    os.Getenv("DB_PASS"),
			SSLMode: os.Getenv("DB_SSL_MODE"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envVarAtoi("REDIS_DB", 0),
		},
		Vault: VaultConfig{
			Addr:         os.Getenv("VAULT_ADDR"),
			Role:         os.Getenv("VAULT_ROLE"),
			KVSecretPath: os.Getenv("VAULT_KV_SECRET_PATH"),
			Token:        os.Getenv("VAULT_TOKEN"),
		},
		SigningService: SigningServiceConfig{
			URL:     os.Getenv("SIGNING_SERVICE_URL"),
			APIKey:  os.Getenv("SIGNING_SERVICE_API_KEY"),
			Timeout: envVarDuration("SIGNING_SERVICE_TIMEOUT", 30*time.Second),
		},
		Pendulum: PendulumConfig{
			GatewayURL:        os.Getenv("PENDULUM_GATEWAY_URL"),
			FundingMinimumRaw: envVarOrDefault("PENDULUM_FUNDING_MINIMUM_RAW", "100000000000"),
			NablaRouter:       os.Getenv("PENDULUM_NABLA_ROUTER"),
			FundingAccount:    os.Getenv("PENDULUM_FUNDING_ACCOUNT"),
		},
		AssetHub: AssetHubConfig{
			GatewayURL: os.Getenv("ASSETHUB_GATEWAY_URL"),
		},
		Moonbeam: MoonbeamConfig{
			RPCURL:            os.Getenv("MOONBEAM_RPC_URL"),
			ChainID:           int64(envVarAtoi("MOONBEAM_CHAIN_ID", 1284)),
			ReceiverContract:  os.Getenv("MOONBEAM_RECEIVER_CONTRACT"),
			XTokensPrecompile: envVarOrDefault("MOONBEAM_XTOKENS_PRECOMPILE", "0x0000000000000000000000000000000000000804"),
			SquidRouter:       os.Getenv("MOONBEAM_SQUID_ROUTER"),
			GasLimit:          uint64(envVarAtoi("MOONBEAM_GAS_LIMIT", 1000000)),
			XcmWeight:         uint64(envVarAtoi("MOONBEAM_XCM_WEIGHT", 4000000000)),
		},
		Stellar: StellarConfig{
			HorizonURL:        envVarOrDefault("STELLAR_HORIZON_URL", "https://horizon.stellar.org"),
			NetworkPassphrase: envVarOrDefault("STELLAR_NETWORK_PASSPHRASE", "Public Global Stellar Network ; September 2015"),
			BaseFee:           int64(envVarAtoi("STELLAR_BASE_FEE", 10000)),
		},
		Squid: SquidConfig{
			URL:          envVarOrDefault("SQUID_ROUTER_URL", "https://v2.api.squidrouter.com"),
			IntegratorID: os.Getenv("SQUID_INTEGRATOR_ID"),
		},
		BRLA: BRLAConfig{
			URL:    os.Getenv("BRLA_API_URL"),
			APIKey: os.Getenv("BRLA_API_KEY"),
		},
		Engine: EngineConfig{
			RetryDelay:      envVarDuration("ENGINE_RETRY_DELAY", consts.TransientRetryDelay),
			FailureTimeout:  envVarDuration("ENGINE_FAILURE_TIMEOUT", consts.FailureTimeoutWindow),
			RecoveryTimeout: envVarDuration("ENGINE_RECOVERY_TIMEOUT", consts.RecoveryTimeoutWindow),
			TickInterval:    envVarDuration("ENGINE_TICK_INTERVAL", 15*time.Second),
			LeaseTTL:        envVarDuration("ENGINE_LEASE_TTL", 2*time.Minute),
			PollInterval:    envVarDuration("ENGINE_POLL_INTERVAL", consts.DefaultPollInterval),
			RedeemTimeout:   envVarDuration("ENGINE_REDEEM_TIMEOUT", consts.RedeemExecutionTimeout),
			SwapDeadline:    envVarDuration("ENGINE_SWAP_DEADLINE", consts.StellarPaymentTimeout),
			StellarMaxTime:  envVarDuration("ENGINE_STELLAR_MAX_TIME", consts.StellarPaymentTimeout),
			HTTPTimeout:     envVarDuration("ENGINE_HTTP_TIMEOUT", 30*time.Second),
		},
		AuditWebhookURL: os.Getenv("AUDIT_WEBHOOK_URL"),
	}
}

func envVarOrDefault(envName, fallback string) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return fallback
}

func envVarAtoi(envName string, fallback int) int {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return fallback
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		panic(err)
	}

	return value
}

func envVarDuration(envName string, fallback time.Duration) time.Duration {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return fallback
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		panic(err)
	}

	return value
}

func envVarAsBool(envName string) bool {
	valueStr := os.Getenv(envName)
	return valueStr == "true"
}

// UseVault reports whether secrets should be pulled from Vault instead of the environment.
func (c *AppConfig) UseVault() bool {
	return c.Vault.Addr != "" && !envVarAsBool("VAULT_DISABLED")
}
