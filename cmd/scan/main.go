package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dwarvesf/escrow-history/internal/escrow"
	"github.com/dwarvesf/escrow-history/internal/evmrpc"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
	"github.com/dwarvesf/escrow-history/internal/utils/config"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

func main() {
	app := &cli.App{
		Name:  "scan",
		Usage: "Rebuild the transfer history of one escrow account and print it as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "chain",
				Aliases:  []string{"c"},
				Usage:    "chain name or chain id",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "address",
				Aliases:  []string{"a"},
				Usage:    "escrow account address",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "days",
				Aliases: []string{"d"},
				Usage:   "days of history to rebuild",
				Value:   escrow.DefaultWindowPolicy.StepDays,
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Aliases: []string{"r"},
				Usage:   "RPC endpoint, overrides <CHAIN>_RPC_ENDPOINT",
			},
			&cli.BoolFlag{
				Name:  "walk-full-window",
				Usage: "keep walking back past empty chunks",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	chainID, err := chains.Parse(c.String("chain"))
	if err != nil {
		return err
	}

	appConfig := config.New()
	log := logger.New(appConfig.Environment)

	chainConfig, ok := appConfig.Chains[chainID]
	if rpcURL := c.String("rpc-url"); rpcURL != "" {
		chainConfig.RPCEndpoint = rpcURL
		ok = true
	}
	if !ok {
		return fmt.Errorf("no rpc endpoint for %s: set --rpc-url or the chain's RPC_ENDPOINT variable", chainID)
	}

	ledger, err := evmrpc.New(chainID, chainConfig, log)
	if err != nil {
		return err
	}
	registry := evmrpc.NewRegistry()
	if err := registry.Register(chainID, ledger, chainConfig.TokenAddress); err != nil {
		return err
	}

	opts := escrow.DefaultOptions
	opts.MaxBlockRange = appConfig.Scanner.MaxBlockRange
	opts.ChunkTimeout = appConfig.Scanner.ChunkTimeout
	if c.Bool("walk-full-window") {
		opts.EmptyChunkPolicy = escrow.WalkFullWindow
	}
	scanner := escrow.NewScanner(registry, opts, log, nil)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := scanner.ScanWithStats(ctx, escrow.ScanRequest{
		EscrowAddress: c.String("address"),
		Chain:         chainID,
		HistoryDays:   c.Int("days"),
	})
	if err != nil {
		return err
	}

	return printJSON(result)
}

func printJSON(result escrow.ScanResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
