package solana

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/copywatch/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
type RPCClient interface {
	GetSignaturesForAddress(
		ctx context.Context,
		address solana.PublicKey,
		opts *rpc.GetSignaturesForAddressOpts,
	) ([]*rpc.TransactionSignature, error)

	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		opts *rpc.GetTransactionOpts,
	) (*rpc.GetTransactionResult, error)
}

// Client provides the two ledger-query operations the monitor consumes:
// listing recent transaction signatures for an address and fetching one
// decoded transaction. It wraps the RPC client with domain-specific parsing.
type Client struct {
	rpc     RPCClient
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient creates a new Solana client. If m is nil, no metrics are recorded.
func NewClient(rpcClient RPCClient, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:     rpcClient,
		logger:  logger,
		metrics: m,
	}
}

// ListRecentSignatures returns up to limit signature references for the
// wallet, newest first. If until is non-empty, the listing stops at that
// signature (exclusive), so already-processed windows are not refetched.
func (c *Client) ListRecentSignatures(ctx context.Context, wallet string, limit int, until string) ([]SignatureRef, error) {
	address, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address %q: %w", wallet, err)
	}

	opts := &rpc.GetSignaturesForAddressOpts{
		Limit: &limit,
	}
	if until != "" {
		untilSig, err := solana.SignatureFromBase58(until)
		if err != nil {
			return nil, fmt.Errorf("invalid until signature %q: %w", until, err)
		}
		opts.Until = untilSig
	}

	start := time.Now()
	signatures, err := c.rpc.GetSignaturesForAddress(ctx, address, opts)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall("GetSignaturesForAddress", status, duration)

	if err != nil {
		return nil, fmt.Errorf("failed to get signatures for %s: %w", wallet, err)
	}

	c.logger.DebugContext(ctx, "fetched signature page",
		"wallet", wallet,
		"count", len(signatures),
		"until", until,
	)

	refs := make([]SignatureRef, 0, len(signatures))
	for _, sig := range signatures {
		ref := SignatureRef{
			Signature: sig.Signature.String(),
			Slot:      sig.Slot,
			Failed:    sig.Err != nil,
		}
		if sig.BlockTime != nil {
			ref.BlockTime = sig.BlockTime.Time()
		}
		refs = append(refs, ref)
	}

	return refs, nil
}

// GetParsedTransaction fetches and decodes one transaction by signature.
// Returns (nil, nil) when the transaction is unavailable or cannot be
// decoded; the caller treats that as "not a swap".
func (c *Client) GetParsedTransaction(ctx context.Context, signature string) (*ParsedTransaction, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature %q: %w", signature, err)
	}

	maxVersion := uint64(0)
	opts := &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		MaxSupportedTransactionVersion: &maxVersion,
	}

	start := time.Now()
	result, err := c.rpc.GetTransaction(ctx, sig, opts)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall("GetTransaction", status, duration)

	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", signature, err)
	}
	if result == nil {
		return nil, nil
	}

	parsed, err := parseTransactionResult(signature, result)
	if err != nil {
		// Decode failures degrade to "transaction unavailable" rather than
		// aborting the poll; the signature still gets marked processed.
		c.logger.WarnContext(ctx, "failed to decode transaction",
			"signature", signature,
			"error", err,
		)
		return nil, nil
	}

	return parsed, nil
}
