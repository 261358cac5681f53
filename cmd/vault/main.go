// Command vault runs the hedgevault backend: it records vault deposits and
// withdrawals in a durable journal, mirrors on-chain vault state, and opens
// hedging IOC perp orders on Hyperliquid for qualifying deposits.
//
// Usage:
//
//	vault --config config.yaml
//	vault setup            (interactive config wizard)
//	vault (uses CLI arguments)
//
// Environment variables:
//
//	HEDGEVAULT_PRIVATE_KEY  Hyperliquid signing key (hedging disabled if unset)
//	CHAIN_RPC_URL           overrides the configured chain RPC endpoint
//	BINANCE_API_KEY/SECRET  when price_source is binance
//	BYBIT_API_KEY/SECRET    when price_source is bybit
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/hedgevault/config"
	"github.com/vadiminshakov/hedgevault/internal/clients"
	"github.com/vadiminshakov/hedgevault/internal/ledger"
	"github.com/vadiminshakov/hedgevault/internal/services/accounting"
	"github.com/vadiminshakov/hedgevault/internal/services/chain"
	"github.com/vadiminshakov/hedgevault/internal/services/hedger"
	"github.com/vadiminshakov/hedgevault/internal/services/pricer"
	"github.com/vadiminshakov/hedgevault/internal/setup"
	"github.com/vadiminshakov/hedgevault/internal/web"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	journal, err := ledger.NewJournal(cfg.WALDir, logger)
	if err != nil {
		logger.Fatal("failed to open transaction journal", zap.Error(err))
	}
	defer journal.Close()

	var chainReader chain.Reader
	var confirmer *chain.EthReader
	if cfg.ChainRPCURL != "" && cfg.VaultAddress != "" {
		chainClient, err := clients.NewChainClient(ctx, cfg.ChainRPCURL)
		if err != nil {
			logger.Fatal("failed to connect to chain RPC", zap.Error(err))
		}
		reader, err := chain.NewEthReader(chainClient, cfg.VaultAddress)
		if err != nil {
			logger.Fatal("failed to build chain reader", zap.Error(err))
		}
		chainReader = reader
		confirmer = reader
	} else {
		logger.Warn("chain RPC or vault address not configured, accounting runs on the journal only")
	}

	hook, err := buildHedgeHook(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build hedge pipeline", zap.Error(err))
	}
	if hook == nil {
		logger.Warn("HEDGEVAULT_PRIVATE_KEY not set, hedging disabled")
	}

	engine, err := accounting.NewEngine(chainReader, journal, hook, logger)
	if err != nil {
		logger.Fatal("failed to build accounting engine", zap.Error(err))
	}
	if confirmer != nil {
		engine.WithTxConfirmer(confirmer, cfg.ConfirmTimeout)
	}

	server := web.NewServer(cfg.ListenAddr, engine, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(cfg.TLSDomains) > 0 {
			return server.StartWithAutoTLS(ctx, cfg.TLSDomains, "")
		}
		return server.Start(ctx)
	})
	logger.Info("vault backend started",
		zap.String("coin", cfg.Coin),
		zap.String("listen", cfg.ListenAddr),
		zap.String("price_source", cfg.PriceSource))

	if err := g.Wait(); err != nil {
		logger.Error(err.Error())
	}
}

// buildHedgeHook wires pricer, venue and opener into the post-commit deposit
// hook. Returns nil when no signing key is configured.
func buildHedgeHook(cfg config.Config, logger *zap.Logger) (accounting.HedgeHook, error) {
	key := os.Getenv("HEDGEVAULT_PRIVATE_KEY")
	if key == "" {
		return nil, nil
	}

	hl, err := clients.NewHyperliquidClient(key, cfg.HyperliquidBaseURL)
	if err != nil {
		return nil, err
	}
	venue, err := hedger.NewHyperliquidVenue(hl.Exchange(), hl.AccountAddress())
	if err != nil {
		return nil, err
	}
	opener, err := hedger.NewOpener(venue, venue, logger)
	if err != nil {
		return nil, err
	}

	var prc pricer.Pricer
	switch cfg.PriceSource {
	case config.PriceSourceBinance:
		prc = pricer.NewBinancePricer(clients.NewBinanceClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET")))
	case config.PriceSourceBybit:
		prc = pricer.NewBybitPricer(clients.NewBybitClient(os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET")))
	default:
		prc = pricer.NewHyperliquidPricer(hl.Exchange().Info())
	}

	hook := func(ctx context.Context, amount decimal.Decimal, txRef string) (string, error) {
		price, err := prc.GetPrice(ctx, cfg.Coin)
		if err != nil {
			return "", err
		}
		ack, err := opener.OpenPositionOnDeposit(ctx, amount, cfg.Coin, price)
		if err != nil {
			return "", err
		}
		if ack.OrderID != 0 {
			return fmt.Sprintf("%d", ack.OrderID), nil
		}
		return ack.ClientOrderID, nil
	}
	return hook, nil
}
