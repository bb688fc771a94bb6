// Package config builds a ready-to-serve videosub.Service from server
// configuration. Configuration comes from environment variables layered
// over library defaults.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/playback"
	repomemory "github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/repo/memory"
	repopg "github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/repo/postgres"
	hostedstore "github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/store/hosted"
	memorystore "github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/store/memory"
	s3store "github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub/store/s3"
)

// ServerConfig represents server configuration for the video submission service
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// Database configuration
	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// Storage configuration
	StoreType string `env:"STORE_TYPE" env-default:"memory"` // "memory", "s3", "hosted"

	S3Region       string `env:"S3_REGION" env-default:"us-east-1"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`
	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	S3KeyPrefix    string `env:"S3_KEY_PREFIX" env-default:"videos/"`

	HostedBaseURL string `env:"HOSTED_BASE_URL"`
	HostedAPIKey  string `env:"HOSTED_API_KEY"`

	// Playback configuration
	PlaybackMode     string `env:"PLAYBACK_MODE" env-default:"cdn"` // "cdn", "token"
	PlaybackBaseURL  string `env:"PLAYBACK_BASE_URL"`
	SigningKeyFile   string `env:"SIGNING_KEY_FILE"`
	SigningKeyPairID string `env:"SIGNING_KEY_PAIR_ID"`

	// Auth configuration
	JWTSecret string `env:"JWT_SECRET"`

	// Upload tuning. Sizes accept human-readable values like "200MiB".
	DirectThreshold  string        `env:"DIRECT_UPLOAD_THRESHOLD" env-default:"200MiB"`
	QuotaCeiling     string        `env:"QUOTA_CEILING" env-default:"2GiB"`
	ChunkSize        string        `env:"CHUNK_SIZE" env-default:"50MiB"`
	SessionRetention time.Duration `env:"SESSION_RETENTION" env-default:"1h"`
	MaxUploadSlots   int64         `env:"MAX_UPLOAD_SLOTS_PER_HOUR" env-default:"20"`
	MaxGrants        int64         `env:"MAX_GRANTS_PER_HOUR" env-default:"120"`
	GrantTTL         time.Duration `env:"GRANT_TTL" env-default:"1h"`
}

// Load reads server configuration from the environment.
func Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	switch c.StoreType {
	case "memory":
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("s3_bucket is required when using the s3 store")
		}
	case "hosted":
		if c.HostedBaseURL == "" {
			return errors.New("hosted_base_url is required when using the hosted store")
		}
	default:
		return fmt.Errorf("unsupported store type: %s", c.StoreType)
	}
	if c.PlaybackMode != "cdn" && c.PlaybackMode != "token" {
		return fmt.Errorf("unsupported playback mode: %s", c.PlaybackMode)
	}
	if _, err := units.RAMInBytes(c.DirectThreshold); err != nil {
		return fmt.Errorf("invalid direct upload threshold %q: %w", c.DirectThreshold, err)
	}
	if _, err := units.RAMInBytes(c.QuotaCeiling); err != nil {
		return fmt.Errorf("invalid quota ceiling %q: %w", c.QuotaCeiling, err)
	}
	if _, err := units.RAMInBytes(c.ChunkSize); err != nil {
		return fmt.Errorf("invalid chunk size %q: %w", c.ChunkSize, err)
	}
	return nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (videosub.Service, error) {
	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	store, err := c.buildStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build video store: %w", err)
	}

	threshold, _ := units.RAMInBytes(c.DirectThreshold)
	ceiling, _ := units.RAMInBytes(c.QuotaCeiling)
	chunkSize, _ := units.RAMInBytes(c.ChunkSize)

	options := []videosub.Option{
		videosub.WithRepository(repo),
		videosub.WithVideoStore(store),
		videosub.WithDirectUploadThreshold(threshold),
		videosub.WithQuotaCeiling(ceiling),
		videosub.WithChunkSize(chunkSize),
		videosub.WithRateLimits(c.MaxUploadSlots, c.MaxGrants),
	}
	if c.SessionRetention > 0 {
		options = append(options, videosub.WithSessionRetention(c.SessionRetention))
	}
	if c.GrantTTL > 0 {
		options = append(options, videosub.WithGrantTTL(c.GrantTTL))
	}

	issuer, err := c.buildIssuer()
	if err != nil && !errors.Is(err, videosub.ErrNotConfigured) {
		return nil, fmt.Errorf("failed to build grant issuer: %w", err)
	}
	if issuer != nil {
		options = append(options, videosub.WithGrantIssuer(issuer))
	}

	return videosub.New(options...)
}

func (c *ServerConfig) buildRepository() (videosub.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return repomemory.New(), nil
	case "postgres":
		pool, err := pgxpool.New(context.Background(), c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func (c *ServerConfig) buildStore() (videosub.VideoStore, error) {
	switch c.StoreType {
	case "memory":
		return memorystore.New(), nil
	case "s3":
		return s3store.New(s3store.Config{
			Region:          c.S3Region,
			Bucket:          c.S3Bucket,
			AccessKeyID:     c.S3AccessKey,
			SecretAccessKey: c.S3SecretKey,
			Endpoint:        c.S3Endpoint,
			UsePathStyle:    c.S3UsePathStyle,
			KeyPrefix:       c.S3KeyPrefix,
		})
	case "hosted":
		return hostedstore.New(hostedstore.Config{
			BaseURL: c.HostedBaseURL,
			APIKey:  c.HostedAPIKey,
		})
	default:
		return nil, fmt.Errorf("unsupported store type: %s", c.StoreType)
	}
}

// buildIssuer returns the grant issuer, or ErrNotConfigured when key
// material is absent. A service without an issuer still accepts uploads;
// only playback grant requests fail.
func (c *ServerConfig) buildIssuer() (videosub.GrantIssuer, error) {
	if c.SigningKeyFile == "" || c.PlaybackBaseURL == "" {
		return nil, videosub.ErrNotConfigured
	}
	pemKey, err := os.ReadFile(c.SigningKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}

	switch c.PlaybackMode {
	case "cdn":
		return playback.NewCDNIssuer(pemKey, c.SigningKeyPairID, c.PlaybackBaseURL)
	case "token":
		return playback.NewTokenIssuer(pemKey, c.SigningKeyPairID, c.PlaybackBaseURL)
	default:
		return nil, fmt.Errorf("unsupported playback mode: %s", c.PlaybackMode)
	}
}
