package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"fundScope/internal/chain"
	"fundScope/internal/config"
	"fundScope/internal/dex"
	"fundScope/internal/handler"
	"fundScope/internal/ledger"
	"fundScope/internal/model"
	"fundScope/internal/store"
	"fundScope/internal/store/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "fundscope",
		Short:        "V3 fund accounting follower",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Follow the chain and maintain fund accounting state",
		RunE:  runFollower,
	}
	addRunFlags(runCmd)
	root.AddCommand(runCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Resync every fund once against the latest confirmed block",
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	root.AddCommand(sweepCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "RPC URL")
	cmd.Flags().String("controller", "", "controller contract address")
	cmd.Flags().String("factory", "", "V3 factory address")
	cmd.Flags().StringSlice("fund", nil, "fund contract addresses (comma-separated)")
	cmd.Flags().String("wrapped-native", "", "wrapped native token address")
	cmd.Flags().String("reference-pool", "", "native/stable reference pool address")
	cmd.Flags().String("reference-stable", "", "stable token of the reference pool")
	cmd.Flags().StringSlice("stable-token", nil, "tokens pegged to one USD (comma-separated)")
	cmd.Flags().Uint32("quote-fee-tier", 3000, "fee tier for oracle pool lookups")
	cmd.Flags().String("reward-token", "", "expected staking rewards token, empty accepts any")
	cmd.Flags().Uint64("from", 0, "start block (inclusive)")
	cmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means follow")
	cmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	cmd.Flags().Uint64("confirmations", 12, "confirmations before a block is handled")
	cmd.Flags().Duration("poll-interval", 12*time.Second, "poll interval at the chain head")
	cmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	cmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().Uint64("sweep-cutover-block", 10388255, "block where the sweep stride tightens")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN, empty runs in-memory")
	cmd.Flags().String("audit-out", "./data/audit.jsonl", "audit JSONL path")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

type app struct {
	cfg        config.Config
	logger     *zap.Logger
	chain      *chain.Client
	pg         *postgres.Store
	aggregates *model.Aggregates
	dispatcher *handler.Dispatcher
	decoder    *dex.LogDecoder
	funds      []common.Address
	controller common.Address
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	controller, err := parseAddress("controller", cfg.Controller)
	if err != nil {
		return nil, err
	}
	factory, err := parseAddress("factory", cfg.Factory)
	if err != nil {
		return nil, err
	}
	wrappedNative, err := parseAddress("wrapped-native", cfg.WrappedNative)
	if err != nil {
		return nil, err
	}
	referencePool, err := parseAddress("reference-pool", cfg.ReferencePool)
	if err != nil {
		return nil, err
	}
	referenceStable, err := parseAddress("reference-stable", cfg.ReferenceStable)
	if err != nil {
		return nil, err
	}
	funds, err := parseAddresses("fund", cfg.Funds)
	if err != nil {
		return nil, err
	}
	stables, err := parseAddresses("stable-token", cfg.StableTokens)
	if err != nil {
		return nil, err
	}
	var rewardToken common.Address
	if cfg.RewardToken != "" {
		rewardToken, err = parseAddress("reward-token", cfg.RewardToken)
		if err != nil {
			return nil, err
		}
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	var entityStore store.Store
	var pg *postgres.Store
	aggregates := &model.Aggregates{}
	if cfg.PGDSN != "" {
		pg, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			chainClient.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		loaded, ok, err := pg.LoadAggregates(ctx)
		if err != nil {
			pg.Close()
			chainClient.Close()
			return nil, fmt.Errorf("load aggregates: %w", err)
		}
		if ok {
			aggregates = loaded
		}
		entityStore = pg
	} else {
		entityStore = store.NewMemory()
		logger.Warn("no pg-dsn configured, state is in-memory only")
	}

	reader := dex.NewReader(chainClient, factory, rewardToken, logger)
	oracle := ledger.NewOracle(ledger.OracleConfig{
		WrappedNative:   wrappedNative,
		ReferencePool:   referencePool,
		ReferenceStable: referenceStable,
		StableTokens:    stables,
		QuoteFeeTier:    cfg.QuoteFeeTier,
	}, reader, logger)
	driver := ledger.NewDriver(reader, reader, oracle, entityStore, logger)
	audit := store.NewAuditLog(cfg.AuditOut)

	sweep := handler.DefaultSweepPolicy()
	sweep.CutoverBlock = cfg.SweepCutoverBlock

	dispatcher := handler.NewDispatcher(entityStore, reader, driver, aggregates, audit, sweep, logger)

	decoder, err := dex.NewLogDecoder()
	if err != nil {
		pgClose(pg)
		chainClient.Close()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		chain:      chainClient,
		pg:         pg,
		aggregates: aggregates,
		dispatcher: dispatcher,
		decoder:    decoder,
		funds:      funds,
		controller: controller,
	}, nil
}

func (a *app) close(ctx context.Context) {
	if a.pg != nil {
		if err := a.pg.SaveAggregates(ctx, a.aggregates); err != nil {
			a.logger.Error("save aggregates", zap.Error(err))
		}
		a.pg.Close()
	}
	a.chain.Close()
	a.logger.Sync()
}

func runFollower(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	runner := handler.NewRunner(handler.RunConfig{
		Controller:        a.controller,
		Funds:             a.funds,
		FromBlock:         a.cfg.FromBlock,
		ToBlock:           a.cfg.ToBlock,
		BatchSize:         a.cfg.BatchSize,
		Confirmations:     a.cfg.Confirmations,
		PollInterval:      a.cfg.PollInterval,
		CheckpointPath:    a.cfg.Checkpoint,
		CheckpointEnabled: a.cfg.CheckpointEnabled,
		MaxRetries:        a.cfg.MaxRetries,
		RetryBackoff:      a.cfg.RetryBackoff,
	}, a.chain, a.dispatcher, a.decoder, a.logger)

	a.logger.Info("follower start",
		zap.String("controller", a.controller.Hex()),
		zap.Int("funds", len(a.funds)),
		zap.Uint64("from", a.cfg.FromBlock),
		zap.Uint64("to", a.cfg.ToBlock),
		zap.Uint64("batch_size", a.cfg.BatchSize),
		zap.Uint64("confirmations", a.cfg.Confirmations),
		zap.Bool("checkpoint_enabled", a.cfg.CheckpointEnabled),
	)

	return runner.Run(ctx)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	for _, fund := range a.funds {
		if _, err := a.dispatcher.EnsureFund(ctx, fund); err != nil {
			return fmt.Errorf("bootstrap fund %s: %w", fund.Hex(), err)
		}
	}

	head, err := a.chain.ConfirmedHead(ctx, a.cfg.Confirmations)
	if err != nil {
		return fmt.Errorf("confirmed head: %w", err)
	}
	timestamp, err := a.chain.BlockTimestamp(ctx, head)
	if err != nil {
		return fmt.Errorf("block timestamp: %w", err)
	}

	a.logger.Info("one-shot sweep", zap.Uint64("block", head))
	return a.dispatcher.Sweep(ctx, &model.BlockEvent{Number: head, Timestamp: timestamp})
}

func parseAddress(name, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", name, value)
	}
	return common.HexToAddress(value), nil
}

func parseAddresses(name string, values []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(values))
	for _, value := range values {
		addr, err := parseAddress(name, value)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func pgClose(pg *postgres.Store) {
	if pg != nil {
		pg.Close()
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
