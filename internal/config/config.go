package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	S3             S3Config             `mapstructure:"s3"`
	StorageService StorageServiceConfig `mapstructure:"storage_service"`
	Attachments    AttachmentsConfig    `mapstructure:"attachments"`
	JWT            JWTConfig            `mapstructure:"jwt"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
	LogLevel       string               `mapstructure:"log_level"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CORSOrigins enables CORS when set; "*" allows any origin.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	URI        string `mapstructure:"uri"`
	Name       string `mapstructure:"name"`
	Collection string `mapstructure:"collection"`
}

// S3Config configures the direct bucket backend. An empty BucketName selects
// the delegated storage service instead.
type S3Config struct {
	Provider        string        `mapstructure:"provider"` // "s3" or "minio"
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	BucketName      string        `mapstructure:"bucket_name"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
	UploadPrefix    string        `mapstructure:"upload_prefix"`
	UploadExpiry    time.Duration `mapstructure:"upload_expiry"`
	SignConcurrency int           `mapstructure:"sign_concurrency"`
}

// StorageServiceConfig points at the internal storage service.
type StorageServiceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AttachmentsConfig is the per-deployment shape of the attachment records.
type AttachmentsConfig struct {
	EntityIDField      string `mapstructure:"entity_id_field"`
	Entity             string `mapstructure:"entity"`
	ServiceName        string `mapstructure:"service_name"`
	ExpirationOverride string `mapstructure:"expiration_override"`

	// Entries are "name:kind", e.g. "fileCategory:string?". A list keeps
	// the field names case-sensitive; viper lowercases map keys.
	CustomFields []string `mapstructure:"custom_fields"`

	// Kept raw so that a scalar in the config file is reported instead of
	// being silently split into a one element list.
	CustomSortableFields any `mapstructure:"custom_sortable_fields"`
	CustomFilters        any `mapstructure:"custom_filters"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	ServiceName  string  `mapstructure:"service_name"`
}

// DirectBucket reports whether the service talks to its own bucket.
func (c Config) DirectBucket() bool {
	return strings.TrimSpace(c.S3.BucketName) != ""
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Nested keys map to env vars: s3.bucket_name -> S3_BUCKET_NAME
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)
	// Keys without a default are invisible to AutomaticEnv until bound
	for _, key := range envOnlyKeys {
		if err = v.BindEnv(key); err != nil {
			return
		}
	}

	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// No file: defaults and env vars only
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	config.Attachments.CustomSortableFields = envList("attachments.custom_sortable_fields", config.Attachments.CustomSortableFields)
	config.Attachments.CustomFilters = envList("attachments.custom_filters", config.Attachments.CustomFilters)
	return config, nil
}

var envOnlyKeys = []string{
	"server.cors_origins",
	"s3.endpoint",
	"s3.access_key_id",
	"s3.secret_access_key",
	"tracing.otlp_endpoint",
	"attachments.custom_fields",
	"attachments.custom_sortable_fields",
	"attachments.custom_filters",
}

// envList splits a comma separated env value of a raw list setting. Values
// from the config file are left as they are.
func envList(key string, value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if env, set := os.LookupEnv(envKey); !set || env != s {
		return value
	}
	list := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "attachments")
	v.SetDefault("database.collection", "attachments")
	v.SetDefault("s3.provider", "s3")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.presign_expiry", "15m")
	v.SetDefault("s3.upload_prefix", "uploads")
	v.SetDefault("s3.upload_expiry", "15m")
	v.SetDefault("s3.sign_concurrency", 8)
	v.SetDefault("storage_service.base_url", "http://localhost:8081")
	v.SetDefault("storage_service.timeout", "30s")
	v.SetDefault("attachments.entity_id_field", "entityId")
	v.SetDefault("attachments.entity", "")
	v.SetDefault("attachments.service_name", "attachments")
	v.SetDefault("attachments.expiration_override", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.service_name", "attachment-service")
	v.SetDefault("log_level", "info")
}

// CustomFieldDecls splits the custom field entries into name -> kind.
func (a AttachmentsConfig) CustomFieldDecls() (map[string]string, error) {
	decls := make(map[string]string, len(a.CustomFields))
	for _, entry := range a.CustomFields {
		name, kind, ok := strings.Cut(entry, ":")
		name, kind = strings.TrimSpace(name), strings.TrimSpace(kind)
		if !ok || name == "" || kind == "" {
			return nil, fmt.Errorf("custom field %q must be written as name:kind", entry)
		}
		if _, dup := decls[name]; dup {
			return nil, fmt.Errorf("custom field %q declared twice", name)
		}
		decls[name] = kind
	}
	return decls, nil
}

// StringList converts a raw list setting. Nil means the setting is absent.
// Anything that is not a list of strings is an error.
func StringList(name string, raw any) ([]string, error) {
	switch list := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string, got %T", name, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be an array, got %T", name, raw)
	}
}
