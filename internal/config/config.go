package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	DB      DBConfig      `mapstructure:"db"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Storage StorageConfig `mapstructure:"storage"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Log     LogConfig     `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr        string   `mapstructure:"addr" validate:"required"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=postgres memory"`
	Source string `mapstructure:"source" validate:"required_if=Driver postgres"`
}

type AuthConfig struct {
	Mode    string `mapstructure:"mode" validate:"oneof=hmac jwks"`
	Secret  string `mapstructure:"secret" validate:"required_if=Mode hmac"`
	JWKSURL string `mapstructure:"jwks_url" validate:"required_if=Mode jwks"`
	Issuer  string `mapstructure:"issuer"`
}

type StorageConfig struct {
	Driver    string         `mapstructure:"driver" validate:"oneof=local s3 imagekit"`
	Path      string         `mapstructure:"path" validate:"required_if=Driver local"`
	PublicURL string         `mapstructure:"public_url"`
	Root      string         `mapstructure:"root" validate:"required,startswith=/"`
	S3        S3Config       `mapstructure:"s3"`
	ImageKit  ImageKitConfig `mapstructure:"imagekit"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

type ImageKitConfig struct {
	PrivateKey  string `mapstructure:"private_key"`
	URLEndpoint string `mapstructure:"url_endpoint" validate:"omitempty,url"`
	UploadURL   string `mapstructure:"upload_url" validate:"omitempty,url"`
	APIURL      string `mapstructure:"api_url" validate:"omitempty,url"`
}

type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.source", "")
	v.SetDefault("auth.mode", "hmac")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.jwks_url", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.public_url", "/content")
	v.SetDefault("storage.root", "/fylr")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.use_path_style", false)
	v.SetDefault("storage.imagekit.private_key", "")
	v.SetDefault("storage.imagekit.url_endpoint", "")
	v.SetDefault("storage.imagekit.upload_url", "https://upload.imagekit.io/api/v1/files/upload")
	v.SetDefault("storage.imagekit.api_url", "https://api.imagekit.io/v1")
	v.SetDefault("upload.max_bytes", 50<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads settings.yml from ./configs or /configs when present, then
// overlays environment variables (db.source -> DB_SOURCE). A .env file in
// the working directory is applied to the environment first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	return load("./configs", "/configs")
}

func load(paths ...string) (*Config, error) {
	v := viper.New()
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("settings")
	v.SetConfigType("yml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, formatFieldError(fe))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	switch c.Storage.Driver {
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("invalid configuration: storage.s3.bucket is required")
		}
	case "imagekit":
		if c.Storage.ImageKit.PrivateKey == "" {
			return fmt.Errorf("invalid configuration: storage.imagekit.private_key is required")
		}
	}

	return nil
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
