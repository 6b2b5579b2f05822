package handler

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fundScope/internal/model"
)

// SweepPolicy throttles periodic full recomputes. A block inside the
// end-of-day window always sweeps; outside it only every Stride-th block
// does, with a coarser stride before the cut-over height. Settlement events
// are never throttled; this applies to bare block triggers only.
type SweepPolicy struct {
	DaySeconds   uint64
	WindowSlack  uint64
	Stride       uint64
	CoarseStride uint64
	CutoverBlock uint64
}

// DefaultSweepPolicy matches the production cadence: a 24 second day-boundary
// window, a 16 block stride, and a 240 block stride before the cut-over.
func DefaultSweepPolicy() SweepPolicy {
	return SweepPolicy{
		DaySeconds:   86400,
		WindowSlack:  24,
		Stride:       16,
		CoarseStride: 240,
		CutoverBlock: 10388255,
	}
}

// ShouldSweep reports whether a bare block trigger runs the full recompute.
func (p SweepPolicy) ShouldSweep(number, timestamp uint64) bool {
	modDay := timestamp % p.DaySeconds
	if modDay <= p.WindowSlack || modDay >= p.DaySeconds-p.WindowSlack {
		return true
	}
	if number < p.CutoverBlock && number%p.CoarseStride != 0 {
		return false
	}
	return number%p.Stride == 0
}

// HandleBlock runs the sweep when the throttle allows it.
func (d *Dispatcher) HandleBlock(ctx context.Context, event *model.BlockEvent) error {
	if !d.sweep.ShouldSweep(event.Number, event.Timestamp) {
		return nil
	}
	return d.Sweep(ctx, event)
}

// Sweep is the full fee resync of every tracked fund, then the aggregate
// asset roll-up recomputed as the sum of the per-fund figures just written.
func (d *Dispatcher) Sweep(ctx context.Context, event *model.BlockEvent) error {
	totalAssetsUSD := decimal.Zero
	for _, address := range d.aggregates.FundSummary.Funds {
		fund, fundToken, price, err := d.fundContext(ctx, common.HexToAddress(address))
		if err != nil {
			return err
		}
		if err := d.updateFees(ctx, fund, fundToken, price); err != nil {
			return err
		}
		if err := d.store.PutFund(ctx, fund); err != nil {
			return err
		}
		totalAssetsUSD = totalAssetsUSD.Add(fund.TotalAssetsUSD)
	}
	d.aggregates.FundSummary.TotalAssetsUSD = totalAssetsUSD

	d.logger.Debug("sweep complete",
		zap.Uint64("block", event.Number),
		zap.Int("funds", len(d.aggregates.FundSummary.Funds)),
		zap.String("total_assets_usd", totalAssetsUSD.String()))
	return d.store.Flush(ctx)
}
