package sirivmfeed

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0"`
}

type FeedConfig struct {
	Source                   string `yaml:"source" validate:"omitempty,oneof=synthetic live"`
	FreshnessWindowSeconds   int    `yaml:"freshnessWindowSeconds" validate:"gte=0"`
	SyntheticValiditySeconds int    `yaml:"syntheticValiditySeconds" validate:"gte=0"`
	SyntheticVehicles        int    `yaml:"syntheticVehicles" validate:"gte=0"`
}

func (f FeedConfig) FreshnessWindow() time.Duration {
	return time.Duration(f.FreshnessWindowSeconds) * time.Second
}

func (f FeedConfig) SyntheticValidity() time.Duration {
	return time.Duration(f.SyntheticValiditySeconds) * time.Second
}

type MongoConfig struct {
	ConnectionString string `yaml:"connectionString"`
	Database         string `yaml:"database"`
}

type GTFSRTConfig struct {
	VehiclePositionsURL string `yaml:"vehiclePositionsURL" validate:"omitempty"`
	ReadIntervalMS      int    `yaml:"readIntervalMS" validate:"gte=0"`
	TimeoutMS           int    `yaml:"timeoutMS" validate:"gte=0"`
	OperatorRef         string `yaml:"operatorRef"`
}

func (g GTFSRTConfig) ReadInterval() time.Duration {
	return time.Duration(g.ReadIntervalMS) * time.Millisecond
}

func (g GTFSRTConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutMS) * time.Millisecond
}

type AppConfig struct {
	Server      ServerConfig `yaml:"server"`
	ProducerRef string       `yaml:"producerRef"`
	Feed        FeedConfig   `yaml:"feed"`
	Mongo       MongoConfig  `yaml:"mongo"`
	GTFSRT      GTFSRTConfig `yaml:"gtfsrt"`
}

var Config AppConfig

// LoadAppConfig loads and validates the application configuration from
// config.yml. The Mongo connection string can be overridden with
// SIRIVM_MONGODB_CONNECTION for deployments that keep credentials out of the
// config file.
func LoadAppConfig() error {
	paths := []string{"config.yml", "/etc/siri-vm-feed/config.yml"}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	cfg, err := parseAppConfig(data)
	if err != nil {
		return err
	}
	if conn := os.Getenv("SIRIVM_MONGODB_CONNECTION"); conn != "" {
		cfg.Mongo.ConnectionString = conn
	}
	Config = cfg
	return nil
}

func parseAppConfig(data []byte) (AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, err
	}
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return AppConfig{}, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3002
	}
	if cfg.ProducerRef == "" {
		cfg.ProducerRef = "MIDLANDBUS"
	}
	if cfg.Feed.Source == "" {
		cfg.Feed.Source = "synthetic"
	}
	if cfg.Feed.FreshnessWindowSeconds == 0 {
		cfg.Feed.FreshnessWindowSeconds = 300
	}
	if cfg.Feed.SyntheticValiditySeconds == 0 {
		cfg.Feed.SyntheticValiditySeconds = 30
	}
	if cfg.Feed.SyntheticVehicles == 0 {
		cfg.Feed.SyntheticVehicles = 10
	}
	if cfg.Mongo.ConnectionString == "" {
		cfg.Mongo.ConnectionString = "mongodb://localhost:27017/"
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "sirivm"
	}
	if cfg.GTFSRT.ReadIntervalMS == 0 {
		cfg.GTFSRT.ReadIntervalMS = 30000
	}
	if cfg.GTFSRT.TimeoutMS == 0 {
		cfg.GTFSRT.TimeoutMS = 10000
	}
}
