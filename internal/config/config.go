package config

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	zerrors "github.com/zzenonn/gluepart/internal/errors"
)

// Config holds the application configuration
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Region    string `yaml:"region"`
	// AwsConfig: shared SDK configuration (credentials, region, retry policies).
	// Glue, S3, DynamoDB and SSM clients are all created from it.
	AwsConfig aws.Config

	CatalogID      string        `yaml:"catalog_id"`
	Database       string        `yaml:"database"`
	Table          string        `yaml:"table"`
	Bucket         string        `yaml:"bucket"`
	Prefix         string        `yaml:"prefix"`
	PrefixSegments int           `yaml:"prefix_segments"`
	PartitionKeys  []string      `yaml:"partition_keys"`
	BatchSize      int           `yaml:"batch_size"`
	Concurrency    int           `yaml:"concurrency"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
	ReportTable    string        `yaml:"report_table"`
	SSMPath        string        `yaml:"ssm_path"`
}

// ParameterStore is the subset of the SSM API used to overlay configuration.
type ParameterStore interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// LoadConfig loads configuration from config.yaml, environment variables, or CLI flags
// Priority: CLI flags > SSM parameters > Environment variables > config.yaml > defaults
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	if err := setupViper(configPath, flags); err != nil {
		return nil, err
	}

	awsConfig, err := loadAWSConfig(viper.GetString("region"))
	if err != nil {
		return nil, err
	}

	if ssmPath := viper.GetString("ssm_path"); ssmPath != "" {
		if err := overlaySSM(context.Background(), ssm.NewFromConfig(awsConfig), ssmPath, flags); err != nil {
			return nil, err
		}
	}

	return fromViper(awsConfig), nil
}

// setupViper configures Viper with defaults, paths, and bindings
func setupViper(configPath string, flags *pflag.FlagSet) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	setDefaults()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(flags); err != nil {
			return fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// bindFlags binds each flag under its snake_case config key
func bindFlags(flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		bindErr = viper.BindPFlag(flagKey(f.Name), f)
	})
	return bindErr
}

func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("prefix_segments", 1)
	viper.SetDefault("batch_size", 100)
	viper.SetDefault("concurrency", 4)
	viper.SetDefault("call_timeout", 30*time.Second)
}

func fromViper(awsConfig aws.Config) *Config {
	return &Config{
		LogLevel:       viper.GetString("log_level"),
		LogFormat:      viper.GetString("log_format"),
		Region:         awsConfig.Region,
		AwsConfig:      awsConfig,
		CatalogID:      viper.GetString("catalog_id"),
		Database:       viper.GetString("database"),
		Table:          viper.GetString("table"),
		Bucket:         viper.GetString("bucket"),
		Prefix:         strings.Trim(viper.GetString("prefix"), "/"),
		PrefixSegments: viper.GetInt("prefix_segments"),
		PartitionKeys:  parseList(viper.GetStringSlice("partition_keys")),
		BatchSize:      viper.GetInt("batch_size"),
		Concurrency:    viper.GetInt("concurrency"),
		CallTimeout:    viper.GetDuration("call_timeout"),
		ReportTable:    viper.GetString("report_table"),
		SSMPath:        viper.GetString("ssm_path"),
	}
}

// parseList accepts both YAML lists and "a,b,c" strings from env or flags
func parseList(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// overlaySSM sets every parameter under path as a config value, keyed by the
// parameter's base name. Explicitly passed flags still win.
func overlaySSM(ctx context.Context, store ParameterStore, ssmPath string, flags *pflag.FlagSet) error {
	input := &ssm.GetParametersByPathInput{
		Path:           aws.String(ssmPath),
		Recursive:      aws.Bool(false),
		WithDecryption: aws.Bool(true),
	}

	for {
		out, err := store.GetParametersByPath(ctx, input)
		if err != nil {
			return fmt.Errorf("unable to read SSM parameters under %s: %w", ssmPath, err)
		}

		for _, p := range out.Parameters {
			key := flagKey(path.Base(aws.ToString(p.Name)))
			if flags != nil {
				if f := flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil && f.Changed {
					continue
				}
			}
			log.Debugf("Config %s set from SSM parameter %s", key, aws.ToString(p.Name))
			viper.Set(key, aws.ToString(p.Value))
		}

		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}

	return nil
}

// loadAWSConfig loads AWS SDK configuration
func loadAWSConfig(region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS SDK config: %v", err)
	}
	return cfg, nil
}

// NewGCSClient creates a Google Cloud Storage client. The SDK resolves its own
// credentials from the environment, so it is only created when a gs:// bucket is used.
func NewGCSClient(ctx context.Context) (*storage.Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to create GCS client: %v", err)
	}
	return client, nil
}

// RequireCatalog checks the settings every registration path needs
func (c *Config) RequireCatalog() error {
	if c.Database == "" {
		return zerrors.ConfigNotSetError("database")
	}
	if c.Table == "" {
		return zerrors.ConfigNotSetError("table")
	}
	if c.BatchSize < 1 || c.BatchSize > 100 {
		return fmt.Errorf("%w: batch_size must be between 1 and 100, got %d", zerrors.ErrInvalidBatchSize, c.BatchSize)
	}
	if c.PrefixSegments < 0 {
		return fmt.Errorf("prefix_segments must not be negative, got %d", c.PrefixSegments)
	}
	if c.Prefix != "" {
		if n := len(strings.Split(c.Prefix, "/")); c.PrefixSegments < n {
			return fmt.Errorf("prefix %q has %d segments but prefix_segments is %d", c.Prefix, n, c.PrefixSegments)
		}
	}
	return nil
}
