package main

import (
	"fmt"
	"time"

	"github.com/cohesivestack/valgo"

	"github.com/joshjon/cryptkit/encrypt"
	"github.com/joshjon/cryptkit/log"
	"github.com/joshjon/cryptkit/valgoutil"
)

const (
	defaultPort             = 8080
	defaultRequestTimeout   = 30 * time.Second
	defaultKeystoreDir      = "data"
	defaultServingAlgorithm = "aes-256-gcm"
)

// Config is the configuration of the serve command.
type Config struct {
	Log      log.Config     `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Keystore KeystoreConfig `yaml:"keystore"`
}

type ServerConfig struct {
	Port           int           `yaml:"port" env:"SERVER_PORT"`
	RequestTimeout time.Duration `yaml:"requestTimeout" env:"SERVER_REQUEST_TIMEOUT"`
	CORSOrigins    []string      `yaml:"corsOrigins" env:"SERVER_CORS_ORIGINS"`
	TLSCertFile    string        `yaml:"tlsCertFile" env:"SERVER_TLS_CERT_FILE"`
	TLSKeyFile     string        `yaml:"tlsKeyFile" env:"SERVER_TLS_KEY_FILE"`
}

type KeystoreConfig struct {
	// Dir holds the SQLite database file. Ignored when InMemory is set.
	Dir      string `yaml:"dir" env:"KEYSTORE_DIR"`
	InMemory bool   `yaml:"inMemory" env:"KEYSTORE_IN_MEMORY"`
	// DefaultAlgorithm is used for key creation requests that name none.
	DefaultAlgorithm string `yaml:"defaultAlgorithm" env:"KEYSTORE_DEFAULT_ALGORITHM"`
}

func (c *Config) InitDefaults() {
	c.Log.InitDefaults()
	c.Server.Port = defaultPort
	c.Server.RequestTimeout = defaultRequestTimeout
	c.Keystore.Dir = defaultKeystoreDir
	c.Keystore.DefaultAlgorithm = defaultServingAlgorithm
}

func (c *Config) Validation() *valgo.Validation {
	v := valgo.Is(
		valgo.String(c.Log.Level, "log.level").Passing(func(level string) bool {
			_, ok := log.ParseLevel(level)
			return ok
		}, "must be one of debug, info, warn or error"),
		valgo.Int(c.Server.Port, "server.port").Between(1, 65535),
		valgo.Int64(int64(c.Server.RequestTimeout), "server.requestTimeout").GreaterThan(0),
		valgoutil.AlgorithmValidator(c.Keystore.DefaultAlgorithm, "keystore.defaultAlgorithm"),
	)
	if !c.Keystore.InMemory {
		v.Is(valgo.String(c.Keystore.Dir, "keystore.dir").Not().Blank())
	}
	if c.Server.TLSCertFile != "" || c.Server.TLSKeyFile != "" {
		v.Is(
			valgoutil.FileValidator(c.Server.TLSCertFile, "server.tlsCertFile"),
			valgoutil.FileValidator(c.Server.TLSKeyFile, "server.tlsKeyFile"),
		)
	}
	return v
}

func (c *Config) defaultAlgorithm() (encrypt.Algorithm, error) {
	alg, err := encrypt.ParseAlgorithm(c.Keystore.DefaultAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("keystore default algorithm: %w", err)
	}
	return alg, nil
}
