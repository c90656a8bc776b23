package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// IPFSConfig holds content storage (IPFS node + pinning service) configuration
type IPFSConfig struct {
	UploadFileURL   string        `mapstructure:"upload_file_url"`
	UploadJSONURL   string        `mapstructure:"upload_json_url"`
	PinHashURL      string        `mapstructure:"pin_hash_url"`
	RetrieveJSONURL string        `mapstructure:"retrieve_json_url"`
	RetrieveFileURL string        `mapstructure:"retrieve_file_url"`
	ProjectID       string        `mapstructure:"project_id"`     // Basic auth user for the IPFS node
	ProjectSecret   string        `mapstructure:"project_secret"` // Basic auth password for the IPFS node
	PinJWT          string        `mapstructure:"pin_jwt"`        // Bearer token for the pinning service
	PinName         string        `mapstructure:"pin_name"`
	HashStripTokens []string      `mapstructure:"hash_strip_tokens"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	RetryMaxElapsed time.Duration `mapstructure:"retry_max_elapsed"`
}

// EthereumConfig holds Ethereum-specific configuration
type EthereumConfig struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	ChainID             domain.Chain  `mapstructure:"chain_id"`
	ContractAddress     string        `mapstructure:"contract_address"`
	ContractABIPath     string        `mapstructure:"contract_abi_path"`
	Confirmations       uint64        `mapstructure:"confirmations"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
}

// WalletConfig holds the signing key configuration.
// Either PrivateKey or the keystore fields are used; PrivateKey wins when both are set.
type WalletConfig struct {
	PrivateKey         string `mapstructure:"private_key"`
	KeystoreDir        string `mapstructure:"keystore_dir"`
	KeystoreAddress    string `mapstructure:"keystore_address"`
	KeystorePassphrase string `mapstructure:"keystore_passphrase"`
}

// MintConfig holds mint workflow configuration
type MintConfig struct {
	ExternalURL   string        `mapstructure:"external_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxUploadSize int64         `mapstructure:"max_upload_size"`
}

// OwnershipConfig holds ownership listing configuration
type OwnershipConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	RateLimit       float64       `mapstructure:"rate_limit"` // Ownership checks per second; 0 disables the limit
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Timeout         time.Duration `mapstructure:"timeout"` // Bounds one listing or refresh cycle
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// MarketplaceConfig holds the configuration shared by every marketplace program
type MarketplaceConfig struct {
	BaseConfig `mapstructure:",squash"`
	IPFS       IPFSConfig      `mapstructure:"ipfs"`
	Ethereum   EthereumConfig  `mapstructure:"ethereum"`
	Wallet     WalletConfig    `mapstructure:"wallet"`
	Mint       MintConfig      `mapstructure:"mint"`
	Ownership  OwnershipConfig `mapstructure:"ownership"`
	NATS       NATSConfig      `mapstructure:"nats"`
}

// APIConfig holds configuration for API server
type APIConfig struct {
	MarketplaceConfig `mapstructure:",squash"`
	Server            ServerConfig `mapstructure:"server"`
	Auth              AuthConfig   `mapstructure:"auth"`
}

// CLIConfig holds configuration for nftctl
type CLIConfig struct {
	MarketplaceConfig `mapstructure:",squash"`
}

// LoadAPIConfig loads configuration for API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("marketplace-api", configFile, envPath)

	setMarketplaceDefaults(v)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 360) // mint waits for on-chain confirmation
	v.SetDefault("server.idle_timeout", 120)

	if err := readInConfig(v); err != nil {
		return nil, err
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.MarketplaceConfig.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadCLIConfig loads configuration for nftctl
func LoadCLIConfig(configFile string, envPath string) (*CLIConfig, error) {
	v := configureViper("nftctl", configFile, envPath)

	setMarketplaceDefaults(v)

	if err := readInConfig(v); err != nil {
		return nil, err
	}

	var config CLIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.MarketplaceConfig.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setMarketplaceDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("ipfs.retrieve_file_url", domain.DEFAULT_IPFS_GATEWAY)
	v.SetDefault("ipfs.pin_name", domain.DEFAULT_PIN_NAME)
	v.SetDefault("ipfs.http_timeout", "60s")
	v.SetDefault("ipfs.retry_max_elapsed", "1m")
	v.SetDefault("ethereum.chain_id", string(domain.ChainEthereumMainnet))
	v.SetDefault("ethereum.confirmations", 1)
	v.SetDefault("ethereum.receipt_poll_interval", "2s")
	v.SetDefault("mint.timeout", "5m")
	v.SetDefault("mint.max_upload_size", 50*1024*1024) // 50MB
	v.SetDefault("ownership.concurrency", 1)
	v.SetDefault("ownership.rate_limit", 0)
	v.SetDefault("ownership.refresh_interval", "30s")
	v.SetDefault("ownership.timeout", "2m")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "MARKETPLACE_EVENTS")
	v.SetDefault("nats.connection_name", "ff-marketplace")
}

func readInConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// validate checks the fields every program needs to talk to the chain
func (c *MarketplaceConfig) validate() error {
	if c.Ethereum.RPCURL == "" {
		return errors.New("ethereum.rpc_url is required")
	}
	if c.Ethereum.ContractAddress == "" {
		return errors.New("ethereum.contract_address is required")
	}
	if _, err := domain.NormalizeAddress(c.Ethereum.ContractAddress); err != nil {
		return fmt.Errorf("ethereum.contract_address: %w", err)
	}
	if _, err := c.Ethereum.ChainID.EVMChainID(); err != nil {
		return fmt.Errorf("ethereum.chain_id: %w", err)
	}
	if c.Mint.ExternalURL == "" {
		return errors.New("mint.external_url is required")
	}
	if c.Ethereum.Confirmations == 0 {
		return errors.New("ethereum.confirmations must be at least 1")
	}
	if c.Ownership.Concurrency < 1 {
		return errors.New("ownership.concurrency must be at least 1")
	}
	if c.Ownership.RateLimit < 0 {
		return errors.New("ownership.rate_limit must not be negative")
	}
	if c.Ownership.RefreshInterval <= 0 {
		return errors.New("ownership.refresh_interval must be positive")
	}
	if c.Ownership.Timeout <= 0 {
		return errors.New("ownership.timeout must be positive")
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("FF_MARKETPLACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// IPFS
		"ipfs.upload_file_url",
		"ipfs.upload_json_url",
		"ipfs.pin_hash_url",
		"ipfs.retrieve_json_url",
		"ipfs.retrieve_file_url",
		"ipfs.project_id",
		"ipfs.project_secret",
		"ipfs.pin_jwt",
		"ipfs.pin_name",
		"ipfs.hash_strip_tokens",
		"ipfs.http_timeout",
		"ipfs.retry_max_elapsed",
		// Ethereum
		"ethereum.rpc_url",
		"ethereum.chain_id",
		"ethereum.contract_address",
		"ethereum.contract_abi_path",
		"ethereum.confirmations",
		"ethereum.receipt_poll_interval",
		// Wallet
		"wallet.private_key",
		"wallet.keystore_dir",
		"wallet.keystore_address",
		"wallet.keystore_passphrase",
		// Mint
		"mint.external_url",
		"mint.timeout",
		"mint.max_upload_size",
		// Ownership
		"ownership.concurrency",
		"ownership.rate_limit",
		"ownership.refresh_interval",
		"ownership.timeout",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}
