package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Astemirdum/library-management/library/internal/service"
	"github.com/Astemirdum/library-management/pkg/auth"
	"github.com/Astemirdum/library-management/pkg/circuit_breaker"
	"github.com/Astemirdum/library-management/pkg/kafka"
	"github.com/Astemirdum/library-management/pkg/logger"
	"github.com/Astemirdum/library-management/pkg/postgres"
)

// FileEnv names an optional yaml file. Keys present in the file take
// precedence over the environment and the struct defaults.
const FileEnv = "CONFIG_FILE"

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"LIBRARY_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"LIBRARY_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE" default:"10s"`
}

type Config struct {
	Server         HTTPServer             `yaml:"server"`
	Database       postgres.DB            `yaml:"database"`
	Log            logger.Log             `yaml:"log"`
	Kafka          kafka.Config           `yaml:"kafka"`
	CircuitBreaker circuit_breaker.Config `yaml:"circuitBreaker"`
	Auth           auth.Config            `yaml:"auth"`
	Loan           service.LoanPolicy     `yaml:"loan"`
}

var (
	once sync.Once
	cfg  *Config
	err  error
)

// NewConfig reads config once per process: environment, then yaml file, then options.
func NewConfig(ops ...Option) (*Config, error) {
	once.Do(func() {
		cfg, err = Load(os.Getenv(FileEnv), ops...)
		if err == nil {
			printConfig(cfg)
		}
	})
	return cfg, err
}

func Load(file string, ops ...Option) (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, errors.Wrap(err, "envconfig")
	}
	if file != "" {
		if err := readFile(file, &c); err != nil {
			return nil, err
		}
	}
	for _, op := range ops {
		op(&c)
	}
	return &c, nil
}

func readFile(file string, c *Config) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse %s", file)
	}
	return nil
}

func printConfig(cfg *Config) {
	masked := *cfg
	masked.Database.Password = "***"
	masked.Auth.Secret = "***"
	jscfg, _ := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(masked, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
