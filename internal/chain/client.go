package chain

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// The sweep throttle asks for a timestamp on every block in a range, so
// timestamps are cached. The cache is cleared wholesale at the limit; the
// follower revisits a block at most during retries, so misses are cheap.
const timestampCacheLimit = 8192

// Client is the raw chain access layer: head tracking, block and log fetch,
// and eth_call for the contract readers.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu         sync.RWMutex
	timestamps map[uint64]uint64
}

// NewClient dials the RPC endpoint.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient:  rpcClient,
		ethClient:  ethclient.NewClient(rpcClient),
		timestamps: make(map[uint64]uint64),
	}, nil
}

func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain id, used for transaction sender recovery.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.ethClient.ChainID(ctx)
}

// ConfirmedHead returns the head minus the confirmation lag, floored at zero.
func (c *Client) ConfirmedHead(ctx context.Context, confirmations uint64) (uint64, error) {
	head, err := c.ethClient.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	if head < confirmations {
		return 0, nil
	}
	return head - confirmations, nil
}

// BlockByNumber returns the full block body. Only blocks carrying tracked
// logs are fetched this way; everything else gets by on the header.
func (c *Client) BlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	return c.ethClient.BlockByNumber(ctx, new(big.Int).SetUint64(number))
}

// BlockTimestamp returns the block's timestamp through the cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.timestamps[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}
	ts = header.Time

	c.mu.Lock()
	if len(c.timestamps) >= timestampCacheLimit {
		c.timestamps = make(map[uint64]uint64)
	}
	c.timestamps[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// FilterLogs returns logs emitted by the given contracts in [fromBlock,
// toBlock], narrowed to the given topic0 set when one is provided.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.ethClient.FilterLogs(ctx, query)
}

// CallContract performs an eth_call at the latest block.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, nil)
}
