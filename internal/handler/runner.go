package handler

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"fundScope/internal/chain"
	"fundScope/internal/dex"
	"fundScope/internal/model"
)

// RunConfig holds runtime settings for the follower loop.
type RunConfig struct {
	Controller        common.Address
	Funds             []common.Address
	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	Confirmations     uint64
	PollInterval      time.Duration
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner follows the chain and feeds triggers to the dispatcher in canonical
// order: per block, each transaction's controller call first, then its logs
// in log order, then the bare block trigger.
type Runner struct {
	cfg        RunConfig
	chain      *chain.Client
	dispatcher *Dispatcher
	decoder    *dex.LogDecoder
	logger     *zap.Logger
	cursor     *Cursor
	signer     types.Signer
}

func NewRunner(cfg RunConfig, chainClient *chain.Client, dispatcher *Dispatcher, decoder *dex.LogDecoder, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainClient,
		dispatcher: dispatcher,
		decoder:    decoder,
		logger:     logger,
		cursor:     NewCursor(cfg.CheckpointPath, cfg.CheckpointEnabled, cfg.Controller),
	}
}

// Run executes the follower loop until the context ends, or until ToBlock
// when one is set.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.Controller == (common.Address{}) {
		return fmt.Errorf("controller address is required")
	}

	chainID, err := r.chain.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	r.signer = types.LatestSignerForChainID(chainID)

	for _, fund := range r.cfg.Funds {
		if _, err := r.dispatcher.EnsureFund(ctx, fund); err != nil {
			return fmt.Errorf("bootstrap fund %s: %w", fund.Hex(), err)
		}
	}

	from := r.cfg.FromBlock
	last, ok, err := r.cursor.Resume()
	if err != nil {
		return err
	}
	if ok && last >= from {
		from = last + 1
		r.logger.Info("resume from cursor", zap.Uint64("last_handled", last), zap.Uint64("from", from))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		head, err := r.headWithRetry(ctx)
		if err != nil {
			return fmt.Errorf("confirmed head: %w", err)
		}
		if r.cfg.ToBlock > 0 && head > r.cfg.ToBlock {
			head = r.cfg.ToBlock
		}

		if from > head {
			if r.cfg.ToBlock > 0 && from > r.cfg.ToBlock {
				r.logger.Info("target block reached", zap.Uint64("to", r.cfg.ToBlock))
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.cfg.PollInterval):
			}
			continue
		}

		to := from + r.cfg.BatchSize - 1
		if to > head {
			to = head
		}

		if err := r.processRange(ctx, from, to); err != nil {
			return err
		}
		if err := r.cursor.Advance(to); err != nil {
			return err
		}
		r.logger.Info("range handled", zap.Uint64("from", from), zap.Uint64("to", to))
		from = to + 1
	}
}

func (r *Runner) processRange(ctx context.Context, from, to uint64) error {
	addresses := make([]common.Address, 0, len(r.cfg.Funds)+1)
	addresses = append(addresses, r.cfg.Controller)
	addresses = append(addresses, r.cfg.Funds...)

	logs, err := r.filterLogsWithRetry(ctx, from, to, addresses)
	if err != nil {
		return fmt.Errorf("filter logs: %w", err)
	}

	byTx := make(map[common.Hash][]types.Log)
	blocksWithLogs := make(map[uint64]bool)
	for _, log := range logs {
		byTx[log.TxHash] = append(byTx[log.TxHash], log)
		blocksWithLogs[log.BlockNumber] = true
	}
	for hash := range byTx {
		txLogs := byTx[hash]
		sort.Slice(txLogs, func(i, j int) bool { return txLogs[i].Index < txLogs[j].Index })
	}

	for number := from; number <= to; number++ {
		if err := r.processBlock(ctx, number, byTx, blocksWithLogs[number]); err != nil {
			return fmt.Errorf("block %d: %w", number, err)
		}
	}
	return nil
}

func (r *Runner) processBlock(ctx context.Context, number uint64, byTx map[common.Hash][]types.Log, hasLogs bool) error {
	// Blocks without tracked logs still need the sweep trigger, but only
	// candidate blocks are worth the full block fetch.
	timestamp, err := r.chain.BlockTimestamp(ctx, number)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	sweepDue := r.dispatcher.sweep.ShouldSweep(number, timestamp)
	if !hasLogs && !sweepDue {
		return nil
	}

	if hasLogs {
		block, err := r.blockWithRetry(ctx, number)
		if err != nil {
			return err
		}
		for _, tx := range block.Transactions() {
			meta, err := r.txMeta(tx, number, timestamp)
			if err != nil {
				return err
			}

			if tx.To() != nil && *tx.To() == r.cfg.Controller {
				call, err := dex.DecodeControllerCall(tx.Data(), meta)
				if err != nil {
					return fmt.Errorf("decode call %s: %w", tx.Hash().Hex(), err)
				}
				if call != nil {
					if err := r.dispatcher.Dispatch(ctx, call); err != nil {
						return fmt.Errorf("call %s: %w", tx.Hash().Hex(), err)
					}
				}
			}

			for _, log := range byTx[tx.Hash()] {
				if log.BlockNumber != number || !r.decoder.CanDecode(log.Topics[0]) {
					continue
				}
				meta.LogIndex = log.Index
				event, err := r.decoder.Decode(log, meta)
				if err != nil {
					return fmt.Errorf("decode log %s/%d: %w", tx.Hash().Hex(), log.Index, err)
				}
				if err := r.dispatcher.Dispatch(ctx, event); err != nil {
					return fmt.Errorf("log %s/%d: %w", tx.Hash().Hex(), log.Index, err)
				}
			}
		}
	}

	return r.dispatcher.Dispatch(ctx, &model.BlockEvent{Number: number, Timestamp: timestamp})
}

func (r *Runner) txMeta(tx *types.Transaction, number, timestamp uint64) (model.EventMeta, error) {
	from, err := types.Sender(r.signer, tx)
	if err != nil {
		return model.EventMeta{}, fmt.Errorf("tx sender %s: %w", tx.Hash().Hex(), err)
	}
	return model.EventMeta{
		TxHash:      tx.Hash(),
		BlockNumber: number,
		Timestamp:   timestamp,
		From:        from,
		GasPrice:    new(big.Int).Set(tx.GasPrice()),
	}, nil
}

func (r *Runner) headWithRetry(ctx context.Context) (uint64, error) {
	var head uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		head, err = r.chain.ConfirmedHead(ctx, r.cfg.Confirmations)
		if err != nil {
			r.logger.Warn("head fetch failed", zap.Error(err))
		}
		return err
	})
	return head, err
}

func (r *Runner) blockWithRetry(ctx context.Context, number uint64) (*types.Block, error) {
	var block *types.Block
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		block, err = r.chain.BlockByNumber(ctx, number)
		if err != nil {
			r.logger.Warn("block fetch failed", zap.Error(err), zap.Uint64("block", number))
		}
		return err
	})
	return block, err
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, from, to uint64, addresses []common.Address) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, from, to, addresses, r.decoder.Topics())
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", from), zap.Uint64("to", to))
		}
		return err
	})
	return logs, err
}
