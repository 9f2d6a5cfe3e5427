package workflow

// Error taxonomy surfaced by the engine. Handlers map these onto HTTP
// statuses; anything untyped is an internal failure. Messages are user
// facing and must not carry key material or raw ledger responses. The
// underlying cause is logged where it happens.

// ValidationError reports bad or missing input, including references to
// entities that do not exist.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AuthorizationError reports an identity mismatch: the acting user is
// not the certificate's designated recipient or issuer.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// InvalidStateError reports a transition that is not legal from the
// certificate's current status.
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string { return e.Message }

// LedgerError reports a failed opt-in or transfer. Certificate status
// was not advanced, so the operation is safe to retry.
type LedgerError struct {
	Message string
	Err     error
}

func (e *LedgerError) Error() string { return e.Message }
func (e *LedgerError) Unwrap() error { return e.Err }

// MintError reports a failed asset mint. Nothing was persisted, so the
// create is safe to retry.
type MintError struct {
	Message string
	Err     error
}

func (e *MintError) Error() string { return e.Message }
func (e *MintError) Unwrap() error { return e.Err }

// ArtifactError reports a failed render or upload of the certificate
// artwork. Raised before any ledger call, so the create is safe to
// retry.
type ArtifactError struct {
	Message string
	Err     error
}

func (e *ArtifactError) Error() string { return e.Message }
func (e *ArtifactError) Unwrap() error { return e.Err }
