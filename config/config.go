// Package config loads vault service configuration from a YAML file or CLI
// flags. Secrets are never read from the file: the Hyperliquid private key
// comes from HEDGEVAULT_PRIVATE_KEY and the chain RPC URL may be overridden
// with CHAIN_RPC_URL.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	PriceSourceHyperliquid = "hyperliquid"
	PriceSourceBinance     = "binance"
	PriceSourceBybit       = "bybit"
)

type Config struct {
	Coin               string
	VaultAddress       string
	ChainRPCURL        string
	PriceSource        string
	HyperliquidBaseURL string
	ListenAddr         string
	WALDir             string
	TLSDomains         []string
	ConfirmTimeout     time.Duration
}

type configTmp struct {
	Coin               string        `yaml:"coin"`
	VaultAddress       string        `yaml:"vault_address"`
	ChainRPCURL        string        `yaml:"chain_rpc_url,omitempty"`
	PriceSource        string        `yaml:"price_source,omitempty"`
	HyperliquidBaseURL string        `yaml:"hyperliquid_base_url,omitempty"`
	ListenAddr         string        `yaml:"listen_addr,omitempty"`
	WALDir             string        `yaml:"wal_dir,omitempty"`
	TLSDomains         []string      `yaml:"tls_domains,omitempty"`
	ConfirmTimeout     time.Duration `yaml:"confirm_timeout,omitempty"`
}

func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	coin := flag.String("coin", "BTC", "hedge coin symbol, example: BTC")
	vaultAddr := flag.String("vault", "", "vault contract address")
	chainRPC := flag.String("chainrpc", "", "chain RPC endpoint URL")
	priceSource := flag.String("pricesource", PriceSourceHyperliquid, "reference price source: hyperliquid, binance or bybit")
	listen := flag.String("listen", ":8080", "HTTP listen address")
	walDir := flag.String("waldir", "", "transaction journal directory")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	cfg := Config{
		Coin:         *coin,
		VaultAddress: *vaultAddr,
		ChainRPCURL:  *chainRPC,
		PriceSource:  *priceSource,
		ListenAddr:   *listen,
		WALDir:       *walDir,
	}
	return finalize(cfg)
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("parse yaml config: %w", err)
	}

	cfg := Config{
		Coin:               tmp.Coin,
		VaultAddress:       tmp.VaultAddress,
		ChainRPCURL:        tmp.ChainRPCURL,
		PriceSource:        tmp.PriceSource,
		HyperliquidBaseURL: tmp.HyperliquidBaseURL,
		ListenAddr:         tmp.ListenAddr,
		WALDir:             tmp.WALDir,
		TLSDomains:         tmp.TLSDomains,
		ConfirmTimeout:     tmp.ConfirmTimeout,
	}
	return finalize(cfg)
}

func finalize(cfg Config) (Config, error) {
	if cfg.Coin == "" {
		return Config{}, fmt.Errorf("'coin' param is required")
	}
	if cfg.PriceSource == "" {
		cfg.PriceSource = PriceSourceHyperliquid
	}
	switch cfg.PriceSource {
	case PriceSourceHyperliquid, PriceSourceBinance, PriceSourceBybit:
	default:
		return Config{}, fmt.Errorf("unsupported price source %q", cfg.PriceSource)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 30 * time.Second
	}
	// env overrides file for the RPC endpoint so deployments can point the
	// same config at different networks
	if rpc := os.Getenv("CHAIN_RPC_URL"); rpc != "" {
		cfg.ChainRPCURL = rpc
	}
	return cfg, nil
}
