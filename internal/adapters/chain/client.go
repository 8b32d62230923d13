// Package chain wraps the go-ethereum client used for head lookups and
// identity-registry reads.
package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const identityABI = `[{"name":"getWhitelistedRoot","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"address"}]}]`

// Client wraps an ethclient connection plus the identity registry binding.
type Client struct {
	eth      *ethclient.Client
	identity common.Address
	registry abi.ABI
}

// Dial connects to the chain RPC endpoint and prepares the identity
// registry call binding.
func Dial(ctx context.Context, rpcURL string, identity common.Address) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	registry, err := abi.JSON(strings.NewReader(identityABI))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("parse identity abi: %w", err)
	}
	return &Client{eth: eth, identity: identity, registry: registry}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// HeadBlock returns the current chain head height.
func (c *Client) HeadBlock(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("block number: %w", err)
	}
	return n, nil
}

// WhitelistedRoot reads getWhitelistedRoot(account) from the identity
// registry. The zero address means the account has no whitelisted root.
func (c *Client) WhitelistedRoot(ctx context.Context, account common.Address) (common.Address, error) {
	data, err := c.registry.Pack("getWhitelistedRoot", account)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack getWhitelistedRoot: %w", err)
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.identity, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("call getWhitelistedRoot: %w", err)
	}
	values, err := c.registry.Unpack("getWhitelistedRoot", out)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack getWhitelistedRoot: %w", err)
	}
	root, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected getWhitelistedRoot output %T", values[0])
	}
	return root, nil
}
