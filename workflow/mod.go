// Package workflow implements the operations of sealbox on top of the
// services: encrypt-and-publish, fetch-and-decrypt and the management of the
// allowlists.
//
// The services are passed explicitly through the environment, which is built
// once per process from the configuration.
package workflow

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"go.dedis.ch/sealbox"
	"go.dedis.ch/sealbox/account"
	"go.dedis.ch/sealbox/blob"
	"go.dedis.ch/sealbox/crypto"
	"go.dedis.ch/sealbox/ledger"
	"go.dedis.ch/sealbox/results"
	"go.dedis.ch/sealbox/seal"
	"golang.org/x/xerrors"
)

// Env is the environment of the workflows.
type Env struct {
	Account    account.Account
	Ledger     ledger.Service
	Seal       seal.Service
	Blobs      blob.Store
	Results    *results.File
	PackageID  []byte
	Threshold  int
	Epochs     int
	SessionTTL time.Duration
	// Rand is the source of the nonces.
	Rand io.Reader
	// Out receives the progress of the workflows.
	Out io.Writer
}

func (env Env) logger() zerolog.Logger {
	return sealbox.Logger.With().Str("role", "workflow").Logger()
}

func (env Env) random() io.Reader {
	if env.Rand == nil {
		return crypto.CryptographicRandomGenerator{}
	}

	return env.Rand
}

func (env Env) printf(format string, args ...interface{}) {
	if env.Out != nil {
		fmt.Fprintf(env.Out, format+"\n", args...)
	}
}

// Submit signs and submits a transaction of the account with its next nonce.
func (env Env) Submit(ctx context.Context, fn string, args ...ledger.Arg) (ledger.Receipt, error) {
	nonce, err := env.Ledger.GetNonce(ctx, env.Account.Address())
	if err != nil {
		return ledger.Receipt{}, xerrors.Errorf("failed to get nonce: %w", err)
	}

	tx, err := ledger.NewTransaction(env.Account, nonce, fn, args...)
	if err != nil {
		return ledger.Receipt{}, xerrors.Errorf("failed to create transaction: %v", err)
	}

	receipt, err := env.Ledger.Submit(ctx, tx)
	if err != nil {
		return receipt, xerrors.Errorf("failed to submit '%s': %w", fn, err)
	}

	logger := env.logger()
	logger.Debug().
		Str("function", fn).
		Uint64("nonce", nonce).
		Int("created", len(receipt.Created)).
		Msg("transaction executed")

	return receipt, nil
}

func (env Env) saveResult(entry results.Entry) error {
	if env.Results == nil {
		return nil
	}

	entry.CreatedAt = time.Now()

	err := env.Results.Add(entry)
	if err != nil {
		return xerrors.Errorf("failed to save results: %v", err)
	}

	return nil
}
