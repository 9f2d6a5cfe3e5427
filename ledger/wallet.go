package ledger

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log"

	"github.com/algorand/go-algorand-sdk/v2/client/kmd"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"tenx/config"
)

// CreateUserAccount provisions a kmd wallet named after the user,
// generates its first account and funds it from the default wallet.
// Returns the account address.
func (c *Client) CreateUserAccount(ctx context.Context, username, password string) (string, error) {
	if _, err := c.kmd.CreateWallet(username, password, kmd.DefaultWalletDriver, types.MasterDerivationKey{}); err != nil {
		return "", fmt.Errorf("create wallet for %s: %w", username, err)
	}

	address, err := c.firstAccount(username, password)
	if err != nil {
		return "", err
	}

	if err := c.EnsureFunded(ctx, address); err != nil {
		return "", err
	}

	log.Printf("Created ledger account %s for %s", address, username)
	return address, nil
}

// VerifyAccess checks that the user's wallet opens with the given
// password. The handle is released immediately.
func (c *Client) VerifyAccess(username, password string) error {
	walletID, err := c.walletID(username)
	if err != nil {
		return err
	}
	handle, err := c.kmd.InitWalletHandle(walletID, password)
	if err != nil {
		return fmt.Errorf("unlock wallet for %s: %w", username, err)
	}
	if _, err := c.kmd.ReleaseWalletHandle(handle.WalletHandleToken); err != nil {
		log.Printf("Error releasing wallet handle for %s: %v", username, err)
	}
	return nil
}

// EnsureFunded tops the account up from the default wallet when its
// balance is below the funding amount. New accounts need algos to cover
// the asset opt-in minimum balance and transaction fees.
func (c *Client) EnsureFunded(ctx context.Context, address string) error {
	account, err := c.algod.AccountInformation(address).Do(ctx)
	if err != nil {
		return fmt.Errorf("account information for %s: %w", address, err)
	}
	if account.Amount >= config.AppConfig.FundingAmount {
		return nil
	}

	sp, err := c.algod.SuggestedParams().Do(ctx)
	if err != nil {
		return fmt.Errorf("suggested params: %w", err)
	}

	funderAddress, funderKey, err := c.defaultWalletKey()
	if err != nil {
		return err
	}

	txn, err := transaction.MakePaymentTxn(funderAddress, address, config.AppConfig.FundingAmount, nil, "", sp)
	if err != nil {
		return fmt.Errorf("build funding txn: %w", err)
	}

	if _, err := c.send(ctx, txn, funderKey); err != nil {
		return fmt.Errorf("fund account %s: %w", address, err)
	}
	log.Printf("Funded account %s with %d microAlgos", address, config.AppConfig.FundingAmount)
	return nil
}

// firstAccount returns the wallet's first address, generating one for a
// fresh wallet.
func (c *Client) firstAccount(username, password string) (string, error) {
	walletID, err := c.walletID(username)
	if err != nil {
		return "", err
	}

	handle, err := c.kmd.InitWalletHandle(walletID, password)
	if err != nil {
		return "", fmt.Errorf("unlock wallet for %s: %w", username, err)
	}
	defer func() {
		if _, err := c.kmd.ReleaseWalletHandle(handle.WalletHandleToken); err != nil {
			log.Printf("Error releasing wallet handle for %s: %v", username, err)
		}
	}()

	keys, err := c.kmd.ListKeys(handle.WalletHandleToken)
	if err != nil {
		return "", fmt.Errorf("list keys for %s: %w", username, err)
	}
	if len(keys.Addresses) > 0 {
		return keys.Addresses[0], nil
	}

	generated, err := c.kmd.GenerateKey(handle.WalletHandleToken)
	if err != nil {
		return "", fmt.Errorf("generate key for %s: %w", username, err)
	}
	return generated.Address, nil
}

// defaultWalletKey exports the funding key from the node's default
// wallet.
func (c *Client) defaultWalletKey() (string, ed25519.PrivateKey, error) {
	walletID, err := c.walletID(config.AppConfig.DefaultWalletName)
	if err != nil {
		return "", nil, err
	}

	handle, err := c.kmd.InitWalletHandle(walletID, config.AppConfig.DefaultWalletPassword)
	if err != nil {
		return "", nil, fmt.Errorf("unlock default wallet: %w", err)
	}
	defer func() {
		if _, err := c.kmd.ReleaseWalletHandle(handle.WalletHandleToken); err != nil {
			log.Printf("Error releasing default wallet handle: %v", err)
		}
	}()

	keys, err := c.kmd.ListKeys(handle.WalletHandleToken)
	if err != nil {
		return "", nil, fmt.Errorf("list default wallet keys: %w", err)
	}
	if len(keys.Addresses) == 0 {
		return "", nil, fmt.Errorf("default wallet %q has no accounts", config.AppConfig.DefaultWalletName)
	}
	address := keys.Addresses[0]

	export, err := c.kmd.ExportKey(handle.WalletHandleToken, config.AppConfig.DefaultWalletPassword, address)
	if err != nil {
		return "", nil, fmt.Errorf("export default wallet key: %w", err)
	}
	return address, export.PrivateKey, nil
}
