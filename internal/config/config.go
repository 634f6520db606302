package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/cuongbtq/zeebe-docling-worker/internal/worker/domain"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	defaultServiceHost = "zeebe.camunda.io"
	defaultTokenURL    = "https://login.cloud.camunda.io/oauth/token"
	defaultAudience    = "zeebe.camunda.io"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Logging  LoggingConfig  `yaml:"logging"`
	Camunda  CamundaConfig  `yaml:"camunda"`
	Worker   WorkerConfig   `yaml:"worker"`
	Docling  DoclingConfig  `yaml:"docling"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Server   ServerConfig   `yaml:"server"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// CamundaConfig holds cluster coordinates and client credentials
type CamundaConfig struct {
	ClusterID        string        `yaml:"cluster_id"`
	Region           string        `yaml:"region"`
	ClientID         string        `yaml:"client_id"`
	ClientSecret     string        `yaml:"client_secret"`
	ServiceHost      string        `yaml:"service_host"`
	GatewayAddress   string        `yaml:"gateway_address"`
	DocumentsBaseURL string        `yaml:"documents_base_url"`
	TokenURL         string        `yaml:"token_url"`
	Audience         string        `yaml:"audience"`
	Insecure         bool          `yaml:"insecure"`
	TokenRefreshSkew time.Duration `yaml:"token_refresh_skew"`
}

// DocumentsURL returns the base of the document store API
func (c *CamundaConfig) DocumentsURL() string {
	if c.DocumentsBaseURL != "" {
		return strings.TrimRight(c.DocumentsBaseURL, "/")
	}
	return fmt.Sprintf("https://%s.%s:443", c.Region, c.ServiceHost)
}

// WorkerConfig holds job loop configuration
type WorkerConfig struct {
	Name                string        `yaml:"name"`
	JobType             string        `yaml:"job_type"`
	JobTimeout          time.Duration `yaml:"job_timeout"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
	StagingDir          string        `yaml:"staging_dir"`
	DownloadTimeout     time.Duration `yaml:"download_timeout"`
	ReportFailures      bool          `yaml:"report_failures"`
	FailureRetryBackoff time.Duration `yaml:"failure_retry_backoff"`
	ErrorBackoff        time.Duration `yaml:"error_backoff"`
	CleanupStagedFiles  bool          `yaml:"cleanup_staged_files"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout"`
}

// DoclingConfig holds docling-serve settings
type DoclingConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Endpoint string        `yaml:"endpoint"`
	ToFormat string        `yaml:"to_format"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate"`

	ConnectRetries       int           `yaml:"connect_retries"`
	ConnectRetryInterval time.Duration `yaml:"connect_retry_interval"`
}

// RabbitMQConfig holds outcome event publishing configuration
type RabbitMQConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds the optional queue bound to the exchange
type QueueConfig struct {
	Name       string `yaml:"name"`
	BindingKey string `yaml:"binding_key"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	ConfirmTimeout    time.Duration `yaml:"confirm_timeout"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// envOverrides are read from the process environment after the file
type envOverrides struct {
	ClientID         string `envconfig:"CLIENT_ID"`
	ClientSecret     string `envconfig:"CLIENT_SECRET"`
	ClusterID        string `envconfig:"CLUSTER_ID"`
	Region           string `envconfig:"REGION"`
	DoclingURL       string `envconfig:"DOCLING_URL"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD"`
	RabbitMQPassword string `envconfig:"RABBITMQ_PASSWORD"`
}

// lowercaseAliases may appear in .env files in lower case
var lowercaseAliases = []string{"client_id", "client_secret", "cluster_id", "region"}

// Load reads and parses the configuration file, overlays the environment and
// fills defaults
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyEnv() error {
	for _, name := range lowercaseAliases {
		upper := strings.ToUpper(name)
		if os.Getenv(upper) != "" {
			continue
		}
		if v := os.Getenv(name); v != "" {
			if err := os.Setenv(upper, v); err != nil {
				return err
			}
		}
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	override(&c.Camunda.ClientID, env.ClientID)
	override(&c.Camunda.ClientSecret, env.ClientSecret)
	override(&c.Camunda.ClusterID, env.ClusterID)
	override(&c.Camunda.Region, env.Region)
	override(&c.Docling.BaseURL, env.DoclingURL)
	override(&c.Database.Password, env.DatabasePassword)
	override(&c.RabbitMQ.Password, env.RabbitMQPassword)

	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	setString(&c.App.Name, "zeebe-docling-worker")

	setString(&c.Logging.Level, "info")
	setString(&c.Logging.Format, "console")
	setString(&c.Logging.Output, "stdout")

	setString(&c.Camunda.ServiceHost, defaultServiceHost)
	setString(&c.Camunda.TokenURL, defaultTokenURL)
	setString(&c.Camunda.Audience, defaultAudience)
	setDuration(&c.Camunda.TokenRefreshSkew, 30*time.Second)

	setString(&c.Worker.Name, "docling-worker-"+uuid.NewString()[:8])
	setString(&c.Worker.JobType, domain.DefaultJobType)
	setDuration(&c.Worker.JobTimeout, 60*time.Second)
	setDuration(&c.Worker.RequestTimeout, 60*time.Second)
	setString(&c.Worker.StagingDir, "./docs/")
	setDuration(&c.Worker.DownloadTimeout, 60*time.Second)
	setDuration(&c.Worker.ShutdownTimeout, 30*time.Second)

	setString(&c.Docling.BaseURL, "http://localhost:5001")
	setString(&c.Docling.Endpoint, "/v1/convert/file")
	setString(&c.Docling.ToFormat, "md")
	setDuration(&c.Docling.Timeout, 5*time.Minute)

	setInt(&c.Database.Port, 5432)
	setString(&c.Database.SSLMode, "disable")
	setInt(&c.Database.MaxOpenConns, 10)
	setInt(&c.Database.MaxIdleConns, 5)
	setDuration(&c.Database.ConnMaxLifetime, 30*time.Minute)
	setDuration(&c.Database.ConnMaxIdleTime, 5*time.Minute)
	setDuration(&c.Database.ConnectRetryInterval, 2*time.Second)

	setInt(&c.RabbitMQ.Port, 5672)
	setString(&c.RabbitMQ.VHost, "/")
	setString(&c.RabbitMQ.Exchange.Name, "docling.outcomes")
	setString(&c.RabbitMQ.Exchange.Type, "topic")
	setString(&c.RabbitMQ.Queue.BindingKey, "job.#")
	setInt(&c.RabbitMQ.Connection.RetryAttempts, 5)
	setDuration(&c.RabbitMQ.Connection.RetryInterval, 2*time.Second)
	setDuration(&c.RabbitMQ.Connection.Heartbeat, 10*time.Second)
	setInt(&c.RabbitMQ.Publish.RetryAttempts, 3)
	setDuration(&c.RabbitMQ.Publish.RetryInterval, 100*time.Millisecond)
	setDuration(&c.RabbitMQ.Publish.ConfirmTimeout, 5*time.Second)
	if c.RabbitMQ.Publish.BackoffMultiplier <= 0 {
		c.RabbitMQ.Publish.BackoffMultiplier = 2
	}

	setInt(&c.Server.Port, 8080)
	setDuration(&c.Server.ReadTimeout, 10*time.Second)
	setDuration(&c.Server.WriteTimeout, 10*time.Second)
	setDuration(&c.Server.IdleTimeout, 60*time.Second)
	setDuration(&c.Server.ShutdownTimeout, 10*time.Second)
}

func setString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if *dst == 0 {
		*dst = v
	}
}

// ValidateAPIConfig checks the settings the journal API needs
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	return c.validateDatabase()
}

// ValidateWorkerConfig checks the settings the job worker needs
func (c *Config) ValidateWorkerConfig() error {
	if c.Camunda.ClientID == "" {
		return fmt.Errorf("camunda client_id is required")
	}

	if c.Camunda.ClientSecret == "" {
		return fmt.Errorf("camunda client_secret is required")
	}

	if c.Camunda.GatewayAddress == "" && (c.Camunda.ClusterID == "" || c.Camunda.Region == "") {
		return fmt.Errorf("camunda cluster_id and region are required unless gateway_address is set")
	}

	if c.Camunda.DocumentsBaseURL == "" && (c.Camunda.ClusterID == "" || c.Camunda.Region == "") {
		return fmt.Errorf("camunda cluster_id and region are required unless documents_base_url is set")
	}

	if c.Worker.JobType == "" {
		return fmt.Errorf("worker job_type is required")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.RequestTimeout <= 0 {
		return fmt.Errorf("worker request_timeout must be greater than 0")
	}

	if c.Worker.ErrorBackoff < 0 || c.Worker.FailureRetryBackoff < 0 {
		return fmt.Errorf("worker backoffs must not be negative")
	}

	if c.Docling.BaseURL == "" {
		return fmt.Errorf("docling base_url is required")
	}

	switch c.Docling.ToFormat {
	case "md", "text", "html":
	default:
		return fmt.Errorf("unsupported docling to_format: %q", c.Docling.ToFormat)
	}

	if c.Database.Enabled {
		if err := c.validateDatabase(); err != nil {
			return err
		}
	}

	if c.RabbitMQ.Enabled {
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq host is required")
		}

		if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
			return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
		}

		if c.RabbitMQ.Exchange.Name == "" {
			return fmt.Errorf("rabbitmq exchange name is required")
		}
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}
