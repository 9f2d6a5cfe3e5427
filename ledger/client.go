package ledger

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log"

	"github.com/algorand/go-algorand-sdk/v2/client/kmd"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	algomodels "github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"tenx/config"
	"tenx/workflow"
)

const (
	confirmationRounds = 4
	assetUnitName      = "Cert"
)

// Client talks to an Algorand node (algod) and its key management
// daemon (kmd). Each user owns a kmd wallet named after them, locked by
// their password. Signing keys are exported for the duration of a
// single call and the wallet handle is released before returning.
type Client struct {
	algod *algod.Client
	kmd   kmd.Client
}

// NewClient connects to algod and kmd using the configured endpoints.
func NewClient() (*Client, error) {
	algodClient, err := algod.MakeClient(config.AppConfig.AlgodURL, config.AppConfig.AlgodToken)
	if err != nil {
		return nil, fmt.Errorf("connect to algod: %w", err)
	}
	kmdClient, err := kmd.MakeClient(config.AppConfig.KmdURL, config.AppConfig.KmdToken)
	if err != nil {
		return nil, fmt.Errorf("connect to kmd: %w", err)
	}
	log.Println("Connected to algod and kmd successfully.")
	return &Client{algod: algodClient, kmd: kmdClient}, nil
}

// MintAsset creates the certificate token: a single-unit asset managed
// by the issuer, with the artifact's content hash as the asset URL.
// Blocks until the ledger confirms and returns the new asset id.
func (c *Client) MintAsset(ctx context.Context, sender workflow.Account, meta workflow.AssetMetadata) (uint64, error) {
	sp, err := c.algod.SuggestedParams().Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("suggested params: %w", err)
	}

	txn, err := transaction.MakeAssetCreateTxn(
		sender.Address, nil, sp,
		1, 0, false,
		sender.Address, sender.Address, sender.Address, sender.Address,
		assetUnitName, meta.Title, meta.ContentHash, "",
	)
	if err != nil {
		return 0, fmt.Errorf("build asset create txn: %w", err)
	}

	sk, err := c.signingKey(sender)
	if err != nil {
		return 0, err
	}

	info, err := c.send(ctx, txn, sk)
	if err != nil {
		return 0, err
	}
	return info.AssetIndex, nil
}

// OptIn registers the account's intent to hold the asset: a zero-amount
// transfer from the account to itself. Required by the ledger before
// anyone may transfer the asset to this account.
func (c *Client) OptIn(ctx context.Context, account workflow.Account, assetID uint64) error {
	sp, err := c.algod.SuggestedParams().Do(ctx)
	if err != nil {
		return fmt.Errorf("suggested params: %w", err)
	}

	txn, err := transaction.MakeAssetAcceptanceTxn(account.Address, nil, sp, assetID)
	if err != nil {
		return fmt.Errorf("build asset opt-in txn: %w", err)
	}

	sk, err := c.signingKey(account)
	if err != nil {
		return err
	}

	_, err = c.send(ctx, txn, sk)
	return err
}

// Transfer moves one unit of the asset from the sender to the receiver.
func (c *Client) Transfer(ctx context.Context, from, to workflow.Account, assetID uint64) error {
	sp, err := c.algod.SuggestedParams().Do(ctx)
	if err != nil {
		return fmt.Errorf("suggested params: %w", err)
	}

	txn, err := transaction.MakeAssetTransferTxn(from.Address, to.Address, 1, nil, sp, "", assetID)
	if err != nil {
		return fmt.Errorf("build asset transfer txn: %w", err)
	}

	sk, err := c.signingKey(from)
	if err != nil {
		return err
	}

	_, err = c.send(ctx, txn, sk)
	return err
}

// send signs, submits and waits for confirmation.
func (c *Client) send(ctx context.Context, txn types.Transaction, sk ed25519.PrivateKey) (algomodels.PendingTransactionInfoResponse, error) {
	var info algomodels.PendingTransactionInfoResponse

	_, stx, err := crypto.SignTransaction(sk, txn)
	if err != nil {
		return info, fmt.Errorf("sign transaction: %w", err)
	}

	txid, err := c.algod.SendRawTransaction(stx).Do(ctx)
	if err != nil {
		return info, fmt.Errorf("send transaction: %w", err)
	}

	info, err = transaction.WaitForConfirmation(c.algod, txid, confirmationRounds, ctx)
	if err != nil {
		return info, fmt.Errorf("await confirmation of %s: %w", txid, err)
	}
	log.Printf("Transaction %s confirmed in round %d", txid, info.ConfirmedRound)
	return info, nil
}

// signingKey exports the account's private key from the caller's kmd
// wallet. The wallet handle is released before returning so nothing
// credential-shaped outlives the call.
func (c *Client) signingKey(account workflow.Account) (ed25519.PrivateKey, error) {
	walletID, err := c.walletID(account.Username)
	if err != nil {
		return nil, err
	}

	handle, err := c.kmd.InitWalletHandle(walletID, account.Credential)
	if err != nil {
		return nil, fmt.Errorf("unlock wallet for %s: %w", account.Username, err)
	}
	defer func() {
		if _, err := c.kmd.ReleaseWalletHandle(handle.WalletHandleToken); err != nil {
			log.Printf("Error releasing wallet handle for %s: %v", account.Username, err)
		}
	}()

	export, err := c.kmd.ExportKey(handle.WalletHandleToken, account.Credential, account.Address)
	if err != nil {
		return nil, fmt.Errorf("export key for %s: %w", account.Username, err)
	}
	return export.PrivateKey, nil
}

// walletID resolves a kmd wallet by name.
func (c *Client) walletID(name string) (string, error) {
	resp, err := c.kmd.ListWallets()
	if err != nil {
		return "", fmt.Errorf("list wallets: %w", err)
	}
	for _, wallet := range resp.Wallets {
		if wallet.Name == name {
			return wallet.ID, nil
		}
	}
	return "", fmt.Errorf("wallet %q not found", name)
}
