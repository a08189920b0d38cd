package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
	"github.com/tokenmesh/marketplace-backend/internal/utils"
)

// ChainConfig points the aggregator at one chain's indexer API.
type ChainConfig struct {
	Blockchain domain.Blockchain `yaml:"blockchain"`
	BaseURL    string            `yaml:"base_url"`
}

type Config struct {
	ServiceName       string
	Environment       string
	Version           string
	Port              string
	PreferredPlatform domain.Platform
	Chains            []ChainConfig
}

// LoadConfig reads env first; CHAINS_CONFIG_PATH optionally points at a
// YAML file listing the chain endpoints, otherwise they come from
// CHAIN_<BLOCKCHAIN>_URL vars filtered by ENABLED_BLOCKCHAINS.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		ServiceName:       utils.GetEnv("SERVICE_NAME", "marketplace-backend", log),
		Environment:       utils.GetEnv("ENVIRONMENT", "development", log),
		Version:           utils.GetEnv("SERVICE_VERSION", "dev", log),
		Port:              utils.GetEnv("PORT", "8080", log),
		PreferredPlatform: domain.Platform(utils.GetEnv("PREFERRED_PLATFORM", string(domain.PlatformTokenmesh), log)),
	}

	path := utils.GetEnv("CHAINS_CONFIG_PATH", "", log)
	if path != "" {
		chains, err := loadChainsFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Chains = chains
		return cfg, nil
	}

	chains, err := chainsFromEnv(log)
	if err != nil {
		return Config{}, err
	}
	cfg.Chains = chains
	return cfg, nil
}

func loadChainsFile(path string) ([]ChainConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chains config %s: %w", path, err)
	}
	var file struct {
		Chains []ChainConfig `yaml:"chains"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse chains config %s: %w", path, err)
	}
	for _, c := range file.Chains {
		if _, err := domain.ParseBlockchain(string(c.Blockchain)); err != nil {
			return nil, fmt.Errorf("chains config %s: %w", path, err)
		}
		if strings.TrimSpace(c.BaseURL) == "" {
			return nil, fmt.Errorf("chains config %s: %s has no base_url", path, c.Blockchain)
		}
	}
	return file.Chains, nil
}

func chainsFromEnv(log *logger.Logger) ([]ChainConfig, error) {
	enabled := domain.AllBlockchains
	if raw := utils.GetEnv("ENABLED_BLOCKCHAINS", "", log); raw != "" {
		enabled = nil
		for _, part := range strings.Split(raw, ",") {
			blockchain, err := domain.ParseBlockchain(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			enabled = append(enabled, blockchain)
		}
	}

	var chains []ChainConfig
	for _, blockchain := range enabled {
		key := fmt.Sprintf("CHAIN_%s_URL", blockchain)
		url := utils.GetEnv(key, "", log)
		if url == "" {
			log.Warn("no indexer URL for blockchain, skipping", "blockchain", blockchain, "key", key)
			continue
		}
		chains = append(chains, ChainConfig{Blockchain: blockchain, BaseURL: url})
	}
	return chains, nil
}
