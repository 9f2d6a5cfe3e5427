package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tenx/models"
)

type fakeStore struct {
	mu         sync.Mutex
	nextID     uint
	certs      map[uint]*models.Certificate
	users      map[uint]*models.User
	challenges map[uint]*models.Challenge
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:     1,
		certs:      make(map[uint]*models.Certificate),
		users:      make(map[uint]*models.User),
		challenges: make(map[uint]*models.Challenge),
	}
}

func (s *fakeStore) CreateCertificate(_ context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert.ID = s.nextID
	s.nextID++
	copied := *cert
	s.certs[cert.ID] = &copied
	return nil
}

func (s *fakeStore) CertificateByID(_ context.Context, id uint) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.certs[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	copied := *cert
	return &copied, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id uint, from, to models.ApprovalStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.certs[id]
	if !ok || cert.ApprovalStatus != from {
		return false, nil
	}
	cert.ApprovalStatus = to
	return true, nil
}

func (s *fakeStore) CertificatesByIssuer(_ context.Context, issuerID uint) ([]models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Certificate
	for _, cert := range s.certs {
		if cert.IssuerID == issuerID {
			out = append(out, *cert)
		}
	}
	return out, nil
}

func (s *fakeStore) CertificatesByRecipient(_ context.Context, recipientID uint) ([]models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Certificate
	for _, cert := range s.certs {
		if cert.RecipientID == recipientID {
			out = append(out, *cert)
		}
	}
	return out, nil
}

func (s *fakeStore) UserByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return user, nil
}

func (s *fakeStore) ChallengeByID(_ context.Context, id uint) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge, ok := s.challenges[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return challenge, nil
}

type fakeLedger struct {
	mu          sync.Mutex
	mintErr     error
	optInErr    error
	transferErr error
	nextAssetID uint64
	mints       int
	optIns      []uint64
	transfers   []uint64
}

func (l *fakeLedger) MintAsset(_ context.Context, _ Account, _ AssetMetadata) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mintErr != nil {
		return 0, l.mintErr
	}
	l.mints++
	l.nextAssetID++
	return l.nextAssetID + 1000, nil
}

func (l *fakeLedger) OptIn(_ context.Context, _ Account, assetID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.optInErr != nil {
		return l.optInErr
	}
	l.optIns = append(l.optIns, assetID)
	return nil
}

func (l *fakeLedger) Transfer(_ context.Context, _, _ Account, assetID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.transferErr != nil {
		return l.transferErr
	}
	l.transfers = append(l.transfers, assetID)
	return nil
}

type fakeArtifact struct {
	err   error
	calls int
}

func (a *fakeArtifact) RenderAndPublish(_ context.Context, _, _ string, _ time.Time, _ int) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return "QmTestHash", nil
}

type fixture struct {
	engine   *Engine
	store    *fakeStore
	ledger   *fakeLedger
	artifact *fakeArtifact
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	store.users[1] = &models.User{Model: gorm.Model{ID: 1}, Username: "issuer", Role: models.RoleIssuer, AccountAddress: "ISSUERADDR"}
	store.users[2] = &models.User{Model: gorm.Model{ID: 2}, Username: "trainee", Role: models.RoleTrainee, AccountAddress: "TRAINEEADDR"}
	store.challenges[1] = &models.Challenge{Model: gorm.Model{ID: 1}, Title: "Week 1 Challenge", WeekNumber: 1, BatchNumber: 4}
	ledger := &fakeLedger{}
	artifact := &fakeArtifact{}
	return &fixture{
		engine:   NewEngine(store, ledger, artifact, time.Second),
		store:    store,
		ledger:   ledger,
		artifact: artifact,
	}
}

func createParams() CreateParams {
	return CreateParams{Title: "Week 1", Score: 90, ChallengeID: 1, RecipientID: 2, Credential: "hunter22"}
}

func TestCreateMintsThenPersists(t *testing.T) {
	f := newFixture(t)

	cert, err := f.engine.Create(context.Background(), 1, createParams())
	require.NoError(t, err)

	assert.Equal(t, models.StatusNoRequest, cert.ApprovalStatus)
	assert.NotZero(t, cert.AssetID)
	assert.Equal(t, "QmTestHash", cert.ContentHash)
	assert.Equal(t, uint(1), cert.IssuerID)
	assert.Equal(t, uint(2), cert.RecipientID)
	assert.Len(t, f.store.certs, 1)
}

func TestCreateMissingFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Create(context.Background(), 1, CreateParams{Score: 90})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Zero(t, f.artifact.calls)
	assert.Zero(t, f.ledger.mints)
}

func TestCreateUnknownReferences(t *testing.T) {
	f := newFixture(t)

	var validationErr *ValidationError

	params := createParams()
	params.RecipientID = 99
	_, err := f.engine.Create(context.Background(), 1, params)
	require.ErrorAs(t, err, &validationErr)

	params = createParams()
	params.ChallengeID = 99
	_, err = f.engine.Create(context.Background(), 1, params)
	require.ErrorAs(t, err, &validationErr)

	_, err = f.engine.Create(context.Background(), 99, createParams())
	require.ErrorAs(t, err, &validationErr)

	assert.Zero(t, f.ledger.mints)
	assert.Empty(t, f.store.certs)
}

func TestCreateArtifactFailureAbortsBeforeMint(t *testing.T) {
	f := newFixture(t)
	f.artifact.err = errors.New("pinata unreachable")

	_, err := f.engine.Create(context.Background(), 1, createParams())

	var artifactErr *ArtifactError
	require.ErrorAs(t, err, &artifactErr)
	assert.Zero(t, f.ledger.mints)
	assert.Empty(t, f.store.certs)
}

func TestCreateMintFailurePersistsNothing(t *testing.T) {
	f := newFixture(t)
	f.ledger.mintErr = errors.New("node down")

	_, err := f.engine.Create(context.Background(), 1, createParams())

	var mintErr *MintError
	require.ErrorAs(t, err, &mintErr)
	assert.Empty(t, f.store.certs)

	// Retry after the node recovers produces exactly one record.
	f.ledger.mintErr = nil
	_, err = f.engine.Create(context.Background(), 1, createParams())
	require.NoError(t, err)
	assert.Len(t, f.store.certs, 1)
}

func TestRequestOptInAdvancesToPending(t *testing.T) {
	f := newFixture(t)
	cert, err := f.engine.Create(context.Background(), 1, createParams())
	require.NoError(t, err)

	updated, err := f.engine.RequestOptIn(context.Background(), cert.ID, 2, "hunter22")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, updated.ApprovalStatus)
	assert.Equal(t, []uint64{cert.AssetID}, f.ledger.optIns)

	stored, err := f.store.CertificateByID(context.Background(), cert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.ApprovalStatus)
}

func TestRequestOptInWrongActor(t *testing.T) {
	f := newFixture(t)
	cert, err := f.engine.Create(context.Background(), 1, createParams())
	require.NoError(t, err)

	_, err = f.engine.RequestOptIn(context.Background(), cert.ID, 1, "hunter22")

	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Empty(t, f.ledger.optIns)

	stored, _ := f.store.CertificateByID(context.Background(), cert.ID)
	assert.Equal(t, models.StatusNoRequest, stored.ApprovalStatus)
}

func TestRequestOptInRejectedWhilePendingOrApproved(t *testing.T) {
	f := newFixture(t)
	cert, err := f.engine.Create(context.Background(), 1, createParams())
	require.NoError(t, err)

	_, err = f.engine.RequestOptIn(context.Background(), cert.ID, 2, "hunter22")
	require.NoError(t, err)

	var stateErr *InvalidStateError
	_, err = f.engine.RequestOptIn(context.Background(), cert.ID, 2, "hunter22")
	require.ErrorAs(t, err, &stateErr)

	_, err = f.engine.ApproveTransfer(context.Background(), cert.ID, 1, "hunter22")
	require.NoError(t, err)

	// An approved certificate is never reprocessed.
	_, err = f.engine.RequestOptIn(context.Background(), cert.ID, 2, "hunter22")
	require.ErrorAs(t, err, &stateErr)
	assert.Len(t, f.ledger.optIns, 1)
}

func TestRequestOptInRetryableAfterDenied(t *testing.T) {
	f := newFixture(t)
	cert, err := f.engine.Create(context.Background(), 1, createParams())
	require.NoError(t, err)

	claimed, err := f.store.UpdateStatus(context.Background(), cert.ID, models.StatusNoRequest, models.StatusDenied)
	require.NoError(t, err)
	require.True(t, claimed)

	updated, err := f.engine.RequestOptIn(context.Background(), cert.ID, 2, "hunter22")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.ApprovalStatus)
}

func TestRequestOptInLedgerFailureLeavesStatus(t *testing.T) {
	f := newFixture(t)
	cert, err := f.engine.Create(context.Background(), 1, createParams())
	require.NoError(t, err)

	f.ledger.optInErr = errors.New("timeout awaiting confirmation")
	_, err = f.engine.RequestOptIn(context.Background(), cert.ID, 2, "hunter22")

	var ledgerErr *LedgerError
	require.ErrorAs(t, err, &ledgerErr)

	stored, _ := f.store.CertificateByID(context.Background(), cert.ID)
	assert.Equal(t, models.StatusNoRequest, stored.ApprovalStatus)

	// Retry succeeds once the ledger recovers.
	f.ledger.optInErr = nil
	updated, err := f.engine.RequestOptIn(context.Background(), cert.ID, 2, "hunter22")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.ApprovalStatus)
}

func TestApproveTransferAdvancesToApproved(t *testing.T) {
	f := newFixture(t)
	cert, err := f.engine.Create(context.Background(), 1, createParams())
	require.NoError(t, err)
	_, err = f.engine.RequestOptIn(context.Background(), cert.ID, 2, "hunter22")
	require.NoError(t, err)

	updated, err := f.engine.ApproveTransfer(context.Background(), cert.ID, 1, "hunter22")
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, updated.ApprovalStatus)
	assert.Equal(t, []uint64{cert.AssetID}, f.ledger.transfers)
}

func TestApproveTransferWrongActor(t *testing.T) {
	f := newFixture(t)
	cert, err := f.engine.Create(context.Background(), 1, createParams())
	require.NoError(t, err)
	_, err = f.engine.RequestOptIn(context.Background(), cert.ID, 2, "hunter22")
	require.NoError(t, err)

	// A generic issuer role is not enough, the acting identity must be
	// the certificate's issuer.
	_, err = f.engine.ApproveTransfer(context.Background(), cert.ID, 2, "hunter22")

	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Empty(t, f.ledger.transfers)

	stored, _ := f.store.CertificateByID(context.Background(), cert.ID)
	assert.Equal(t, models.StatusPending, stored.ApprovalStatus)
}

func TestApproveTransferRequiresPending(t *testing.T) {
	f := newFixture(t)
	cert, err := f.engine.Create(context.Background(), 1, createParams())
	require.NoError(t, err)

	var stateErr *InvalidStateError
	_, err = f.engine.ApproveTransfer(context.Background(), cert.ID, 1, "hunter22")
	require.ErrorAs(t, err, &stateErr)
	assert.Empty(t, f.ledger.transfers)
}

func TestApproveTransferLedgerFailureStaysPending(t *testing.T) {
	f := newFixture(t)
	cert, err := f.engine.Create(context.Background(), 1, createParams())
	require.NoError(t, err)
	_, err = f.engine.RequestOptIn(context.Background(), cert.ID, 2, "hunter22")
	require.NoError(t, err)

	f.ledger.transferErr = errors.New("node down")
	_, err = f.engine.ApproveTransfer(context.Background(), cert.ID, 1, "hunter22")

	var ledgerErr *LedgerError
	require.ErrorAs(t, err, &ledgerErr)

	stored, _ := f.store.CertificateByID(context.Background(), cert.ID)
	assert.Equal(t, models.StatusPending, stored.ApprovalStatus)

	f.ledger.transferErr = nil
	updated, err := f.engine.ApproveTransfer(context.Background(), cert.ID, 1, "hunter22")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.ApprovalStatus)
}

func TestConcurrentApprovalsSingleWinner(t *testing.T) {
	f := newFixture(t)
	cert, err := f.engine.Create(context.Background(), 1, createParams())
	require.NoError(t, err)
	_, err = f.engine.RequestOptIn(context.Background(), cert.ID, 2, "hunter22")
	require.NoError(t, err)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.ApproveTransfer(context.Background(), cert.ID, 1, "hunter22")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var stateErr *InvalidStateError
		require.ErrorAs(t, err, &stateErr)
		conflicts++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	stored, _ := f.store.CertificateByID(context.Background(), cert.ID)
	assert.Equal(t, models.StatusApproved, stored.ApprovalStatus)
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t)

	cert, err := f.engine.Create(context.Background(), 1, createParams())
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoRequest, cert.ApprovalStatus)
	assert.NotZero(t, cert.AssetID)

	pending, err := f.engine.RequestOptIn(context.Background(), cert.ID, 2, "hunter22")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, pending.ApprovalStatus)

	approved, err := f.engine.ApproveTransfer(context.Background(), cert.ID, 1, "hunter22")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.ApprovalStatus)

	var stateErr *InvalidStateError
	_, err = f.engine.RequestOptIn(context.Background(), cert.ID, 2, "hunter22")
	require.ErrorAs(t, err, &stateErr)
}

func TestRequestOptInUnknownCertificate(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.RequestOptIn(context.Background(), 42, 2, "hunter22")

	var notFoundErr *NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestListScopedByRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Create(context.Background(), 1, createParams())
	require.NoError(t, err)

	issued, err := f.engine.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, issued, 1)

	received, err := f.engine.List(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, received, 1)

	var notFoundErr *NotFoundError
	_, err = f.engine.List(context.Background(), 99)
	require.ErrorAs(t, err, &notFoundErr)
}
