// Package integration provides end-to-end integration tests for the token
// lifecycle API. Tests all endpoints against both PostgreSQL and MySQL.
package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/authtokens/internal/app"
	"github.com/allisson/authtokens/internal/config"
	"github.com/allisson/authtokens/internal/testutil"
	tokenDomain "github.com/allisson/authtokens/internal/token/domain"
	tokenDTO "github.com/allisson/authtokens/internal/token/http/dto"
)

// integrationTestContext holds all dependencies and state for integration testing.
type integrationTestContext struct {
	container *app.Container
	db        *sql.DB
	server    *httptest.Server
	apiKey    string
	dbDriver  string
}

// makeRequest performs an HTTP request and returns the response and body.
func (ctx *integrationTestContext) makeRequest(
	t *testing.T,
	method, path string,
	body interface{},
	useAuth bool,
) (*http.Response, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ctx.server.URL+path, bodyReader)
	require.NoError(t, err, "failed to create request")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if useAuth {
		req.Header.Set("Authorization", "Bearer "+ctx.apiKey)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	//nolint:gosec // controlled test environment with localhost URLs
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.Logf("Warning: failed to close response body: %v", closeErr)
	}

	return resp, respBody
}

// generateTestPepper creates a fresh base64-encoded 32-byte hash pepper.
func generateTestPepper() string {
	pepper := make([]byte, 32)
	if _, err := rand.Read(pepper); err != nil {
		panic(fmt.Sprintf("failed to generate test pepper: %v", err))
	}
	return base64.StdEncoding.EncodeToString(pepper)
}

// setupIntegrationTest initializes all components for integration testing.
func setupIntegrationTest(t *testing.T, dbDriver string) *integrationTestContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	// Setup database
	var db *sql.DB
	var dsn string
	if dbDriver == "postgres" {
		db = testutil.SetupPostgresDB(t)
		dsn = testutil.GetPostgresTestDSN()
	} else {
		db = testutil.SetupMySQLDB(t)
		dsn = testutil.GetMySQLTestDSN()
	}

	cfg := &config.Config{
		DBDriver:             dbDriver,
		DBConnectionString:   dsn,
		DBMaxOpenConnections: 10,
		DBMaxIdleConnections: 5,
		DBConnMaxLifetime:    time.Hour,
		ServerHost:           "localhost",
		ServerPort:           8080,
		LogLevel:             "error",
		TokenHashPepper:      generateTestPepper(),
		TokenMaxLifetime:     365 * 24 * time.Hour,
		TokenRetention:       90 * 24 * time.Hour,
	}

	container := app.NewContainer(cfg)

	// Issue a root API key for the management endpoints
	tokenUseCase, err := container.TokenUseCase()
	require.NoError(t, err, "failed to get token use case")

	apiKeyOutput, err := tokenUseCase.Create(context.Background(), &tokenDomain.CreateTokenInput{
		Type:          tokenDomain.APIKeyToken,
		Scopes:        []string{"api"},
		CorrelationID: "integration-setup",
	})
	require.NoError(t, err, "failed to issue root api key")

	// Setup HTTP server
	httpSrv, err := container.HTTPServer()
	require.NoError(t, err, "failed to get HTTP server")

	handler := httpSrv.GetHandler()
	require.NotNil(t, handler, "handler should not be nil")

	testServer := httptest.NewServer(handler)

	t.Logf("Integration test setup complete for %s", dbDriver)

	return &integrationTestContext{
		container: container,
		db:        db,
		server:    testServer,
		apiKey:    apiKeyOutput.PlainToken,
		dbDriver:  dbDriver,
	}
}

// teardownIntegrationTest cleans up all resources.
func teardownIntegrationTest(t *testing.T, ctx *integrationTestContext) {
	t.Helper()

	if ctx.server != nil {
		ctx.server.Close()
	}

	if ctx.container != nil {
		if err := ctx.container.Shutdown(context.Background()); err != nil {
			t.Logf("Warning: container shutdown error: %v", err)
		}
	}

	if ctx.db != nil {
		testutil.TeardownDB(t, ctx.db)
	}

	t.Logf("Integration test teardown complete for %s", ctx.dbDriver)
}

// TestIntegration_Health_BasicChecks validates infrastructure health and
// readiness endpoints against both PostgreSQL and MySQL.
func TestIntegration_Health_BasicChecks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testCases := []struct {
		name     string
		dbDriver string
	}{
		{"PostgreSQL", "postgres"},
		{"MySQL", "mysql"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			// [1/2] Test GET /health - Health check endpoint
			t.Run("01_HealthCheck", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/health", nil, false)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response map[string]string
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "healthy", response["status"])
			})

			// [2/2] Test GET /ready - Readiness check endpoint
			t.Run("02_ReadinessCheck", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/ready", nil, false)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response map[string]string
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "ready", response["status"])
			})

			t.Logf("All 2 health endpoint tests passed for %s", tc.dbDriver)
		})
	}
}

// TestIntegration_TokenLifecycle_CompleteFlow exercises issuance, rotation,
// listing, and revocation end to end. Validates that plaintext tokens are
// shown exactly once and that hashes never appear in any response.
func TestIntegration_TokenLifecycle_CompleteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testCases := []struct {
		name     string
		dbDriver string
	}{
		{"PostgreSQL", "postgres"},
		{"MySQL", "mysql"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			userID := uuid.Must(uuid.NewV7())

			// Variables shared across the flow
			var (
				accessTokenID  string
				refreshTokenID string
				refreshToken   string
				rotatedTokenID string
				rotatedToken   string
			)

			// [1/10] Test POST /v1/tokens - Issue access token
			t.Run("01_IssueAccessToken", func(t *testing.T) {
				requestBody := tokenDTO.CreateTokenRequest{
					Type:          "access",
					UserID:        userID.String(),
					CorrelationID: "integration-flow",
				}

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/tokens", requestBody, false)
				assert.Equal(t, http.StatusCreated, resp.StatusCode)

				var response tokenDTO.CreateTokenResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.NotEmpty(t, response.Token)
				assert.NotEmpty(t, response.ID)
				assert.Equal(t, "access", response.Type)
				assert.Equal(t, "active", response.Status)
				require.NotNil(t, response.UserID)
				assert.Equal(t, userID.String(), *response.UserID)
				assert.ElementsMatch(t, []string{"read", "write"}, response.Scopes)
				assert.Equal(t, 0, response.RotationCount)
				assert.Equal(t, "integration-flow", response.CorrelationID)

				accessTokenID = response.ID
			})

			// [2/10] Test POST /v1/tokens - Issue refresh token with lifetime override
			t.Run("02_IssueRefreshToken", func(t *testing.T) {
				lifetime := int64(3600)
				requestBody := tokenDTO.CreateTokenRequest{
					Type:            "refresh",
					UserID:          userID.String(),
					LifetimeSeconds: &lifetime,
					CorrelationID:   "integration-flow",
				}

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/tokens", requestBody, false)
				assert.Equal(t, http.StatusCreated, resp.StatusCode)

				var response tokenDTO.CreateTokenResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.NotEmpty(t, response.Token)
				assert.Equal(t, "refresh", response.Type)
				assert.ElementsMatch(t, []string{"refresh"}, response.Scopes)
				assert.WithinDuration(
					t, response.IssuedAt.Add(time.Hour), response.ExpiresAt, 2*time.Second,
					"expiry should honor the lifetime override",
				)

				refreshTokenID = response.ID
				refreshToken = response.Token
			})

			// [3/10] Test POST /v1/tokens - Reject unknown token type
			t.Run("03_RejectUnknownTokenType", func(t *testing.T) {
				requestBody := tokenDTO.CreateTokenRequest{
					Type:   "session",
					UserID: userID.String(),
				}

				resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/tokens", requestBody, false)
				assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			})

			// [4/10] Test management endpoints without credentials
			t.Run("04_ManagementRequiresAuth", func(t *testing.T) {
				resp, _ := ctx.makeRequest(
					t, http.MethodGet, "/v1/users/"+userID.String()+"/tokens", nil, false,
				)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})

			// [5/10] Test POST /v1/tokens/:id/rotate - Rotate refresh token
			t.Run("05_RotateRefreshToken", func(t *testing.T) {
				resp, body := ctx.makeRequest(
					t, http.MethodPost, "/v1/tokens/"+refreshTokenID+"/rotate", nil, true,
				)
				assert.Equal(t, http.StatusCreated, resp.StatusCode)

				var response tokenDTO.CreateTokenResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.NotEmpty(t, response.Token)
				assert.NotEqual(t, refreshToken, response.Token, "rotation must mint a fresh secret")
				assert.NotEqual(t, refreshTokenID, response.ID)
				require.NotNil(t, response.ParentTokenID)
				assert.Equal(t, refreshTokenID, *response.ParentTokenID)
				assert.Equal(t, 1, response.RotationCount)
				assert.Equal(t, "integration-flow", response.CorrelationID,
					"rotation inherits the parent correlation id")

				rotatedTokenID = response.ID
				rotatedToken = response.Token
			})

			// [6/10] Test GET /v1/users/:user_id/tokens - List user tokens
			t.Run("06_ListUserTokens", func(t *testing.T) {
				resp, body := ctx.makeRequest(
					t, http.MethodGet, "/v1/users/"+userID.String()+"/tokens", nil, true,
				)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response tokenDTO.ListTokensResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, len(response.Tokens), 3,
					"access + refresh + rotated replacement")

				// Listings never leak secret material
				assert.NotContains(t, string(body), "token_hash")
				assert.NotContains(t, string(body), refreshToken)
				assert.NotContains(t, string(body), rotatedToken)
			})

			// [7/10] Test DELETE /v1/tokens/:id - Revoke access token
			t.Run("07_RevokeAccessToken", func(t *testing.T) {
				requestBody := tokenDTO.RevokeTokenRequest{Reason: "integration cleanup"}

				resp, body := ctx.makeRequest(
					t, http.MethodDelete, "/v1/tokens/"+accessTokenID, requestBody, true,
				)
				assert.Equal(t, http.StatusNoContent, resp.StatusCode)
				assert.Empty(t, body)
			})

			// [8/10] Test DELETE /v1/tokens/:id - Revocation is idempotent
			t.Run("08_RevokeAgainIsIdempotent", func(t *testing.T) {
				resp, body := ctx.makeRequest(
					t, http.MethodDelete, "/v1/tokens/"+accessTokenID, nil, true,
				)
				assert.Equal(t, http.StatusNoContent, resp.StatusCode)
				assert.Empty(t, body)
			})

			// [9/10] Test POST /v1/tokens/:id/rotate - Rotating a revoked token fails
			t.Run("09_RotateRevokedTokenFails", func(t *testing.T) {
				// Rotation leaves the parent active for its grace period, so
				// revoke it explicitly first.
				revokeResp, _ := ctx.makeRequest(
					t, http.MethodDelete, "/v1/tokens/"+refreshTokenID, nil, true,
				)
				require.Equal(t, http.StatusNoContent, revokeResp.StatusCode)

				resp, _ := ctx.makeRequest(
					t, http.MethodPost, "/v1/tokens/"+refreshTokenID+"/rotate", nil, true,
				)
				assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			})

			// [10/10] Test DELETE /v1/users/:user_id/tokens - Bulk revocation
			t.Run("10_BulkRevokeUserTokens", func(t *testing.T) {
				resp, body := ctx.makeRequest(
					t, http.MethodDelete, "/v1/users/"+userID.String()+"/tokens",
					tokenDTO.RevokeUserTokensRequest{Reason: "offboarding"}, true,
				)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response tokenDTO.RevokeCountResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, response.Count, int64(1),
					"the rotated replacement should still be active")

				// Everything of the user is now revoked
				listResp, listBody := ctx.makeRequest(
					t, http.MethodGet, "/v1/users/"+userID.String()+"/tokens", nil, true,
				)
				assert.Equal(t, http.StatusOK, listResp.StatusCode)

				var listResponse tokenDTO.ListTokensResponse
				err = json.Unmarshal(listBody, &listResponse)
				require.NoError(t, err)
				for _, token := range listResponse.Tokens {
					assert.Equal(t, "revoked", token.Status)
				}

				require.NotEmpty(t, rotatedTokenID)
			})

			t.Logf("All 10 token lifecycle tests passed for %s", tc.dbDriver)
		})
	}
}

// TestIntegration_TokenValidation_AuthenticationFlow verifies that issued
// tokens authenticate management requests and revoked ones do not.
func TestIntegration_TokenValidation_AuthenticationFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testCases := []struct {
		name     string
		dbDriver string
	}{
		{"PostgreSQL", "postgres"},
		{"MySQL", "mysql"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			userID := uuid.Must(uuid.NewV7())

			var (
				apiKeyID    string
				apiKeyToken string
			)

			// [1/4] Issue a second API key and authenticate with it. System
			// credentials only get the management scope when asked for.
			t.Run("01_IssuedAPIKeyAuthenticates", func(t *testing.T) {
				requestBody := tokenDTO.CreateTokenRequest{
					Type:   "api_key",
					Scopes: []string{"api"},
				}

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/tokens", requestBody, false)
				require.Equal(t, http.StatusCreated, resp.StatusCode)

				var response tokenDTO.CreateTokenResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{"api"}, response.Scopes)
				assert.Nil(t, response.UserID, "api keys are service credentials")

				apiKeyID = response.ID
				apiKeyToken = response.Token

				req, err := http.NewRequest(
					http.MethodGet, ctx.server.URL+"/v1/users/"+userID.String()+"/tokens", nil,
				)
				require.NoError(t, err)
				req.Header.Set("Authorization", "Bearer "+apiKeyToken)

				client := &http.Client{Timeout: 10 * time.Second}
				authResp, err := client.Do(req)
				require.NoError(t, err)
				defer authResp.Body.Close() //nolint:errcheck
				assert.Equal(t, http.StatusOK, authResp.StatusCode)
			})

			// [2/4] An access token lacks the api scope
			t.Run("02_AccessTokenLacksAPIScope", func(t *testing.T) {
				requestBody := tokenDTO.CreateTokenRequest{
					Type:   "access",
					UserID: userID.String(),
				}

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/tokens", requestBody, false)
				require.Equal(t, http.StatusCreated, resp.StatusCode)

				var response tokenDTO.CreateTokenResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)

				req, err := http.NewRequest(
					http.MethodGet, ctx.server.URL+"/v1/users/"+userID.String()+"/tokens", nil,
				)
				require.NoError(t, err)
				req.Header.Set("Authorization", "Bearer "+response.Token)

				client := &http.Client{Timeout: 10 * time.Second}
				scopeResp, err := client.Do(req)
				require.NoError(t, err)
				defer scopeResp.Body.Close() //nolint:errcheck
				assert.Equal(t, http.StatusForbidden, scopeResp.StatusCode)
			})

			// [3/4] Revoke the second API key
			t.Run("03_RevokeAPIKey", func(t *testing.T) {
				resp, _ := ctx.makeRequest(
					t, http.MethodDelete, "/v1/tokens/"+apiKeyID,
					tokenDTO.RevokeTokenRequest{Reason: "compromised"}, true,
				)
				assert.Equal(t, http.StatusNoContent, resp.StatusCode)
			})

			// [4/4] The revoked API key no longer authenticates
			t.Run("04_RevokedAPIKeyIsRejected", func(t *testing.T) {
				req, err := http.NewRequest(
					http.MethodGet, ctx.server.URL+"/v1/users/"+userID.String()+"/tokens", nil,
				)
				require.NoError(t, err)
				req.Header.Set("Authorization", "Bearer "+apiKeyToken)

				client := &http.Client{Timeout: 10 * time.Second}
				resp, err := client.Do(req)
				require.NoError(t, err)
				defer resp.Body.Close() //nolint:errcheck
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.NotContains(t, string(body), "revoked",
					"rejections must not reveal why the credential failed")
			})

			t.Logf("All 4 token validation tests passed for %s", tc.dbDriver)
		})
	}
}
