package certificateController

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenx/models"
	"tenx/workflow"
)

// fakeService scripts engine responses per handler call.
type fakeService struct {
	createFn   func(ctx context.Context, issuerID uint, params workflow.CreateParams) (*models.Certificate, error)
	optInFn    func(ctx context.Context, certID, actingUserID uint, credential string) (*models.Certificate, error)
	transferFn func(ctx context.Context, certID, actingUserID uint, credential string) (*models.Certificate, error)
	listFn     func(ctx context.Context, userID uint) ([]models.Certificate, error)
}

func (f *fakeService) Create(ctx context.Context, issuerID uint, params workflow.CreateParams) (*models.Certificate, error) {
	return f.createFn(ctx, issuerID, params)
}

func (f *fakeService) RequestOptIn(ctx context.Context, certID, actingUserID uint, credential string) (*models.Certificate, error) {
	return f.optInFn(ctx, certID, actingUserID, credential)
}

func (f *fakeService) ApproveTransfer(ctx context.Context, certID, actingUserID uint, credential string) (*models.Certificate, error) {
	return f.transferFn(ctx, certID, actingUserID, credential)
}

func (f *fakeService) List(ctx context.Context, userID uint) ([]models.Certificate, error) {
	return f.listFn(ctx, userID)
}

// withUser stands in for the JWT middleware.
func withUser(userID uint, role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("userId", userID)
		c.Locals("username", "tester")
		c.Locals("role", role)
		return c.Next()
	}
}

type envelope struct {
	IsSuccess bool            `json:"isSuccess"`
	Value     json.RawMessage `json:"value"`
	Error     *string         `json:"error"`
}

func doRequest(t *testing.T, app *fiber.App, method, target string, body interface{}) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return resp.StatusCode, env
}

func TestCreateCertificateReturnsCreatedEnvelope(t *testing.T) {
	svc := &fakeService{
		createFn: func(ctx context.Context, issuerID uint, params workflow.CreateParams) (*models.Certificate, error) {
			assert.Equal(t, uint(1), issuerID)
			assert.Equal(t, "Week 1", params.Title)
			assert.Equal(t, 90, params.Score)
			assert.Equal(t, uint(3), params.ChallengeID)
			assert.Equal(t, uint(2), params.RecipientID)
			assert.Equal(t, "hunter22", params.Credential)
			cert := &models.Certificate{
				Title:          params.Title,
				Score:          params.Score,
				IssuerID:       issuerID,
				RecipientID:    params.RecipientID,
				ChallengeID:    params.ChallengeID,
				AssetID:        77,
				ApprovalStatus: models.StatusNoRequest,
			}
			return cert, nil
		},
	}
	Engine = svc

	app := fiber.New()
	app.Post("/certificates", withUser(1, models.RoleIssuer), CreateCertificate)

	status, env := doRequest(t, app, http.MethodPost, "/certificates", fiber.Map{
		"title":        "Week 1",
		"score":        90,
		"challenge_id": 3,
		"user_id":      2,
		"password":     "hunter22",
	})

	assert.Equal(t, fiber.StatusCreated, status)
	assert.True(t, env.IsSuccess)
	assert.Nil(t, env.Error)

	var cert models.Certificate
	require.NoError(t, json.Unmarshal(env.Value, &cert))
	assert.Equal(t, uint64(77), cert.AssetID)
	assert.Equal(t, models.StatusNoRequest, cert.ApprovalStatus)
}

func TestRequestOptInMapsAuthorizationError(t *testing.T) {
	svc := &fakeService{
		optInFn: func(ctx context.Context, certID, actingUserID uint, credential string) (*models.Certificate, error) {
			return nil, &workflow.AuthorizationError{Message: "Unauthorized to request opt-in for the certificate"}
		},
	}
	Engine = svc

	app := fiber.New()
	app.Put("/certificates/optin/:id", withUser(5, models.RoleTrainee), RequestOptIn)

	status, env := doRequest(t, app, http.MethodPut, "/certificates/optin/9", fiber.Map{"password": "hunter22"})

	assert.Equal(t, fiber.StatusForbidden, status)
	assert.False(t, env.IsSuccess)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Unauthorized to request opt-in for the certificate", *env.Error)
}

func TestApproveOptInMapsInvalidStateError(t *testing.T) {
	svc := &fakeService{
		transferFn: func(ctx context.Context, certID, actingUserID uint, credential string) (*models.Certificate, error) {
			return nil, &workflow.InvalidStateError{Message: "Transfer cannot be approved while the certificate is NoRequest"}
		},
	}
	Engine = svc

	app := fiber.New()
	app.Put("/certificates/optin/approve/:id", withUser(1, models.RoleIssuer), ApproveOptIn)

	status, env := doRequest(t, app, http.MethodPut, "/certificates/optin/approve/9", fiber.Map{"password": "hunter22"})

	assert.Equal(t, fiber.StatusConflict, status)
	assert.False(t, env.IsSuccess)
}

func TestRequestOptInMapsNotFoundError(t *testing.T) {
	svc := &fakeService{
		optInFn: func(ctx context.Context, certID, actingUserID uint, credential string) (*models.Certificate, error) {
			return nil, &workflow.NotFoundError{Message: "Certificate not found"}
		},
	}
	Engine = svc

	app := fiber.New()
	app.Put("/certificates/optin/:id", withUser(2, models.RoleTrainee), RequestOptIn)

	status, env := doRequest(t, app, http.MethodPut, "/certificates/optin/404", fiber.Map{"password": "hunter22"})

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.False(t, env.IsSuccess)
}

func TestRequestOptInRejectsBadID(t *testing.T) {
	Engine = &fakeService{}

	app := fiber.New()
	app.Put("/certificates/optin/:id", withUser(2, models.RoleTrainee), RequestOptIn)

	status, env := doRequest(t, app, http.MethodPut, "/certificates/optin/abc", fiber.Map{"password": "hunter22"})

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, env.IsSuccess)
}

func TestGetCertificatesReturnsList(t *testing.T) {
	svc := &fakeService{
		listFn: func(ctx context.Context, userID uint) ([]models.Certificate, error) {
			assert.Equal(t, uint(2), userID)
			return []models.Certificate{
				{Title: "Week 1", RecipientID: 2, ApprovalStatus: models.StatusApproved},
				{Title: "Week 2", RecipientID: 2, ApprovalStatus: models.StatusPending},
			}, nil
		},
	}
	Engine = svc

	app := fiber.New()
	app.Get("/certificates", withUser(2, models.RoleTrainee), GetCertificates)

	status, env := doRequest(t, app, http.MethodGet, "/certificates", nil)

	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.IsSuccess)

	var certs []models.Certificate
	require.NoError(t, json.Unmarshal(env.Value, &certs))
	assert.Len(t, certs, 2)
}

func TestMissingUserLocalIsUnauthorized(t *testing.T) {
	Engine = &fakeService{}

	app := fiber.New()
	app.Get("/certificates", GetCertificates)

	status, env := doRequest(t, app, http.MethodGet, "/certificates", nil)

	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.False(t, env.IsSuccess)
}
