package setup

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

type configFile struct {
	Coin               string   `yaml:"coin"`
	VaultAddress       string   `yaml:"vault_address"`
	ChainRPCURL        string   `yaml:"chain_rpc_url,omitempty"`
	PriceSource        string   `yaml:"price_source"`
	HyperliquidBaseURL string   `yaml:"hyperliquid_base_url,omitempty"`
	ListenAddr         string   `yaml:"listen_addr"`
	WALDir             string   `yaml:"wal_dir,omitempty"`
	TLSDomains         []string `yaml:"tls_domains,omitempty"`
}

// RunTUI launches the terminal configuration wizard.
func RunTUI() error {
	var (
		coin        string
		vaultAddr   string
		chainRPC    string
		priceSource string
		listenAddr  string
		walDir      string
		confirm     bool
	)

	// defaults
	coin = "BTC"
	priceSource = "hyperliquid"
	listenAddr = ":8080"

	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("HEDGEVAULT CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Set up the vault backend in a few steps.\n"))

	fmt.Println(stepStyle.Render("STEP 1: VAULT"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Hedge coin symbol").
				Value(&coin),
			huh.NewInput().
				Title("Vault contract address (leave empty for journal-only mode)").
				Value(&vaultAddr),
			huh.NewInput().
				Title("Chain RPC endpoint URL").
				Value(&chainRPC),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Println(stepStyle.Render("STEP 2: HEDGING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Reference price source").
				Options(
					huh.NewOption("Hyperliquid mid price", "hyperliquid"),
					huh.NewOption("Binance last price", "binance"),
					huh.NewOption("Bybit last price", "bybit"),
				).
				Value(&priceSource),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Println(stepStyle.Render("STEP 3: SERVER"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("HTTP listen address").
				Value(&listenAddr),
			huh.NewInput().
				Title("Transaction journal directory (empty for default)").
				Value(&walDir),
			huh.NewConfirm().
				Title("Write config.yaml?").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		fmt.Println("aborted, nothing written")
		return nil
	}

	out, err := yaml.Marshal(configFile{
		Coin:         coin,
		VaultAddress: vaultAddr,
		ChainRPCURL:  chainRPC,
		PriceSource:  priceSource,
		ListenAddr:   listenAddr,
		WALDir:       walDir,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile("config.yaml", out, 0o644); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render("\nconfig.yaml written."))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Remember to export HEDGEVAULT_PRIVATE_KEY before starting the service."))
	return nil
}
