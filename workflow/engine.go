package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"tenx/models"
)

// Account identifies a ledger account together with the credential
// needed to sign on its behalf. Credentials ride the request body,
// live for one call and are never retained.
type Account struct {
	Address    string
	Username   string
	Credential string
}

// AssetMetadata is attached to a minted certificate token.
type AssetMetadata struct {
	ContentHash string
	Title       string
}

// Ledger is the on-chain collaborator. Calls block until the
// transaction is confirmed or the context expires. Any failure must
// leave no certificate state behind, so the caller can retry.
type Ledger interface {
	MintAsset(ctx context.Context, sender Account, meta AssetMetadata) (uint64, error)
	OptIn(ctx context.Context, account Account, assetID uint64) error
	Transfer(ctx context.Context, from, to Account, assetID uint64) error
}

// Artifact renders the certificate artwork and publishes it, returning
// the content hash of the published file.
type Artifact interface {
	RenderAndPublish(ctx context.Context, recipientName, title string, issued time.Time, weekNumber int) (string, error)
}

// Store persists certificates and resolves referenced entities.
// UpdateStatus is conditional on the expected current status and
// reports whether the row was claimed; that guard is what serializes
// racing transitions on the same certificate.
type Store interface {
	CreateCertificate(ctx context.Context, cert *models.Certificate) error
	CertificateByID(ctx context.Context, id uint) (*models.Certificate, error)
	UpdateStatus(ctx context.Context, id uint, from, to models.ApprovalStatus) (bool, error)
	CertificatesByIssuer(ctx context.Context, issuerID uint) ([]models.Certificate, error)
	CertificatesByRecipient(ctx context.Context, recipientID uint) ([]models.Certificate, error)
	UserByID(ctx context.Context, id uint) (*models.User, error)
	ChallengeByID(ctx context.Context, id uint) (*models.Challenge, error)
}

// CreateParams carries the issuer's certificate request. Credential is
// the issuer's wallet password, used once to sign the mint.
type CreateParams struct {
	Title       string
	Score       int
	ChallengeID uint
	RecipientID uint
	Credential  string
}

// Engine drives a certificate through NoRequest -> Pending -> Approved,
// coordinating the two-party handshake the ledger's asset model
// demands: the issuer mints, the recipient opts in to the asset class,
// and only then may the issuer transfer. A transfer is never attempted
// before the opt-in for that recipient/asset pair has succeeded.
type Engine struct {
	store    Store
	ledger   Ledger
	artifact Artifact
	timeout  time.Duration
}

// NewEngine wires the engine to its collaborators. timeout bounds each
// ledger call; a timed-out call surfaces as a retryable error without
// advancing certificate state.
func NewEngine(store Store, ledger Ledger, artifact Artifact, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Engine{store: store, ledger: ledger, artifact: artifact, timeout: timeout}
}

// Create renders the certificate artwork, mints the asset and persists
// the certificate with status NoRequest. The order is fixed:
// render, mint, persist. A mint failure leaves no record behind, so a
// retry produces at most one certificate.
func (e *Engine) Create(ctx context.Context, issuerID uint, params CreateParams) (*models.Certificate, error) {
	if params.Title == "" || params.ChallengeID == 0 || params.RecipientID == 0 {
		return nil, &ValidationError{Message: "Missing required fields"}
	}

	issuer, err := e.store.UserByID(ctx, issuerID)
	if err != nil {
		return nil, &ValidationError{Message: "Sender user does not exist"}
	}
	recipient, err := e.store.UserByID(ctx, params.RecipientID)
	if err != nil {
		return nil, &ValidationError{Message: "Receiving user does not exist"}
	}
	challenge, err := e.store.ChallengeByID(ctx, params.ChallengeID)
	if err != nil {
		return nil, &ValidationError{Message: "Challenge does not exist"}
	}

	issued := time.Now().UTC()
	contentHash, err := e.artifact.RenderAndPublish(ctx, recipient.Username, params.Title, issued, challenge.WeekNumber)
	if err != nil {
		log.Printf("Error publishing certificate artwork for %s: %v", recipient.Username, err)
		return nil, &ArtifactError{Message: "Error publishing certificate artwork", Err: err}
	}

	lctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	assetID, err := e.ledger.MintAsset(lctx, Account{
		Address:    issuer.AccountAddress,
		Username:   issuer.Username,
		Credential: params.Credential,
	}, AssetMetadata{ContentHash: contentHash, Title: params.Title})
	if err != nil {
		// Nothing persisted yet, retrying the mint is safe.
		log.Printf("Error minting certificate asset for %s: %v", recipient.Username, err)
		return nil, &MintError{Message: "Error minting certificate asset", Err: err}
	}

	cert := &models.Certificate{
		Title:          params.Title,
		Score:          params.Score,
		IssuedDate:     issued,
		IssuerID:       issuer.ID,
		RecipientID:    recipient.ID,
		ChallengeID:    challenge.ID,
		AssetID:        assetID,
		ContentHash:    contentHash,
		ApprovalStatus: models.StatusNoRequest,
	}
	if err := e.store.CreateCertificate(ctx, cert); err != nil {
		return nil, fmt.Errorf("persist certificate for asset %d: %w", assetID, err)
	}
	return cert, nil
}

// RequestOptIn registers the recipient's intent to hold the asset and
// advances the certificate to Pending. Only the designated recipient
// may call it, and only from NoRequest or Denied.
func (e *Engine) RequestOptIn(ctx context.Context, certID, actingUserID uint, credential string) (*models.Certificate, error) {
	cert, err := e.store.CertificateByID(ctx, certID)
	if err != nil {
		return nil, &NotFoundError{Message: "Certificate not found"}
	}
	if cert.RecipientID != actingUserID {
		return nil, &AuthorizationError{Message: "Unauthorized to request opt-in for the certificate"}
	}

	from := cert.ApprovalStatus
	if from != models.StatusNoRequest && from != models.StatusDenied {
		return nil, &InvalidStateError{Message: fmt.Sprintf("Opt-in cannot be requested while the certificate is %s", from)}
	}

	recipient, err := e.store.UserByID(ctx, cert.RecipientID)
	if err != nil {
		return nil, &ValidationError{Message: "Receiving user does not exist"}
	}

	lctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.ledger.OptIn(lctx, Account{
		Address:    recipient.AccountAddress,
		Username:   recipient.Username,
		Credential: credential,
	}, cert.AssetID); err != nil {
		// Status untouched, the opt-in can be retried.
		log.Printf("Error opting in asset %d for %s: %v", cert.AssetID, recipient.Username, err)
		return nil, &LedgerError{Message: "Error opting in for asset", Err: err}
	}

	claimed, err := e.store.UpdateStatus(ctx, cert.ID, from, models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("advance certificate %d to Pending: %w", cert.ID, err)
	}
	if !claimed {
		return nil, &InvalidStateError{Message: "Certificate status changed concurrently"}
	}

	cert.ApprovalStatus = models.StatusPending
	return cert, nil
}

// ApproveTransfer moves the asset from the issuer's account to the
// recipient's and advances the certificate to Approved. Only the
// designated issuer may call it, and only from Pending, so the opt-in
// has already succeeded.
func (e *Engine) ApproveTransfer(ctx context.Context, certID, actingUserID uint, credential string) (*models.Certificate, error) {
	cert, err := e.store.CertificateByID(ctx, certID)
	if err != nil {
		return nil, &NotFoundError{Message: "Certificate not found"}
	}
	if cert.IssuerID != actingUserID {
		return nil, &AuthorizationError{Message: "Unauthorized to approve transfer for the certificate"}
	}
	if cert.ApprovalStatus != models.StatusPending {
		return nil, &InvalidStateError{Message: fmt.Sprintf("Transfer cannot be approved while the certificate is %s", cert.ApprovalStatus)}
	}

	issuer, err := e.store.UserByID(ctx, cert.IssuerID)
	if err != nil {
		return nil, &ValidationError{Message: "Sender user does not exist"}
	}
	recipient, err := e.store.UserByID(ctx, cert.RecipientID)
	if err != nil {
		return nil, &ValidationError{Message: "Receiving user does not exist"}
	}

	lctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.ledger.Transfer(lctx, Account{
		Address:    issuer.AccountAddress,
		Username:   issuer.Username,
		Credential: credential,
	}, Account{
		Address:  recipient.AccountAddress,
		Username: recipient.Username,
	}, cert.AssetID); err != nil {
		// Still Pending, the transfer can be retried.
		log.Printf("Error transferring asset %d to %s: %v", cert.AssetID, recipient.Username, err)
		return nil, &LedgerError{Message: "Error transferring asset", Err: err}
	}

	claimed, err := e.store.UpdateStatus(ctx, cert.ID, models.StatusPending, models.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("advance certificate %d to Approved: %w", cert.ID, err)
	}
	if !claimed {
		return nil, &InvalidStateError{Message: "Certificate status changed concurrently"}
	}

	cert.ApprovalStatus = models.StatusApproved
	return cert, nil
}

// List returns the certificates visible to a user: issuers see what
// they issued, trainees see what they received.
func (e *Engine) List(ctx context.Context, userID uint) ([]models.Certificate, error) {
	user, err := e.store.UserByID(ctx, userID)
	if err != nil {
		return nil, &NotFoundError{Message: "User not found"}
	}
	if user.Role == models.RoleIssuer {
		return e.store.CertificatesByIssuer(ctx, userID)
	}
	return e.store.CertificatesByRecipient(ctx, userID)
}
