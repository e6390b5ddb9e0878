package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gelbeseiten-scraper/internal/components/telemetry"
	"gelbeseiten-scraper/internal/scrapers/gelbeseiten"
	"gelbeseiten-scraper/lib/configutil"
)

const configFile = "gelbeseiten.json5"

type Config struct {
	BaseUrl           string  `json:"base_url"`
	SearchTerm        string  `json:"search_term"`
	PageSize          int     `json:"page_size"`
	PageDelayMs       int     `json:"page_delay_ms"`
	RetryDelayMs      int     `json:"retry_delay_ms"`
	MaxFailures       int     `json:"max_failures"`
	CheckpointEvery   int     `json:"checkpoint_every"`
	TimeoutMs         int     `json:"timeout_ms"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	UserAgent         string  `json:"user_agent"`
}

func DefaultConfig() Config {
	return Config{
		BaseUrl:           gelbeseiten.DefaultBaseUrl,
		SearchTerm:        "steuerberater",
		PageSize:          gelbeseiten.DefaultPageSize,
		PageDelayMs:       int(gelbeseiten.DefaultPageDelay / time.Millisecond),
		RetryDelayMs:      int(gelbeseiten.DefaultRetryDelay / time.Millisecond),
		MaxFailures:       gelbeseiten.DefaultMaxFailures,
		CheckpointEvery:   gelbeseiten.DefaultCheckpointEvery,
		TimeoutMs:         int(gelbeseiten.DefaultTimeout / time.Millisecond),
		RequestsPerSecond: 2,
		UserAgent:         gelbeseiten.DefaultUserAgent,
	}
}

// LoadConfig reads path, or searches for gelbeseiten.json5 when path is
// empty. Missing keys, and a missing file in the search case, fall back to
// DefaultConfig.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	var err error
	if path == "" {
		cfg, err = configutil.ReadRecursively[Config](configFile)
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
	} else {
		cfg, err = configutil.ReadConfig[Config](path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return configutil.WithDefaults(cfg, DefaultConfig())
}

func (c Config) ClientOptions(searchTerm string, output telemetry.MessageOutput) gelbeseiten.ClientOptions {
	return gelbeseiten.ClientOptions{
		BaseUrl:           c.BaseUrl,
		SearchTerm:        searchTerm,
		UserAgent:         c.UserAgent,
		Timeout:           time.Duration(c.TimeoutMs) * time.Millisecond,
		RequestsPerSecond: c.RequestsPerSecond,
		HttpOutput:        output,
	}
}

func (c Config) RunParams(fetcher gelbeseiten.Fetcher, sink gelbeseiten.Sink, tel telemetry.API, maxResults int) gelbeseiten.RunParams {
	return gelbeseiten.RunParams{
		Fetcher:         fetcher,
		Sink:            sink,
		Tel:             tel,
		MaxResults:      maxResults,
		PageSize:        c.PageSize,
		PageDelay:       time.Duration(c.PageDelayMs) * time.Millisecond,
		RetryDelay:      time.Duration(c.RetryDelayMs) * time.Millisecond,
		MaxFailures:     c.MaxFailures,
		CheckpointEvery: c.CheckpointEvery,
	}
}
