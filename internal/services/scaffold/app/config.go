// Package app wires the scaffold service together and runs it.
package app

import (
	"time"

	"github.com/skafu/skafu/internal/platform/config"
)

// Config holds the runtime configuration of the scaffold service.
type Config struct {
	HTTPAddr string `env:"SKAFU_HTTP_ADDR" envDefault:":8080"`

	JournalPath     string `env:"SKAFU_JOURNAL_PATH" envDefault:"data/journal.db"`
	ProjectionsPath string `env:"SKAFU_PROJECTIONS_PATH" envDefault:"data/projections.db"`
	SnapshotsPath   string `env:"SKAFU_SNAPSHOTS_PATH" envDefault:"data/snapshots.db"`

	RedisAddr      string `env:"SKAFU_REDIS_ADDR"`
	PublishChannel string `env:"SKAFU_PUBLISH_CHANNEL" envDefault:"skafu.events"`
	InboundChannel string `env:"SKAFU_INBOUND_CHANNEL" envDefault:"skafu.inbound"`

	TemplateRegistryURL     string        `env:"SKAFU_TEMPLATE_REGISTRY_URL"`
	TemplateRegistryTimeout time.Duration `env:"SKAFU_TEMPLATE_REGISTRY_TIMEOUT" envDefault:"10s"`

	RelayInterval  time.Duration `env:"SKAFU_RELAY_INTERVAL" envDefault:"2s"`
	RelayBatchSize int           `env:"SKAFU_RELAY_BATCH_SIZE" envDefault:"32"`

	CatchUpInterval time.Duration `env:"SKAFU_CATCHUP_INTERVAL" envDefault:"30s"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
