package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/service"
	"github.com/wallet-insights/internal/types"
)

func fullPreferences() map[string]int {
	prefs := make(map[string]int, len(models.PreferenceFields))
	for _, f := range models.PreferenceFields {
		prefs[f.Name] = 5
	}
	return prefs
}

func TestRegister(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		s, mocks := createTestServer()
		var got service.RegisterInput
		mocks.auth.registerFunc = func(_ context.Context, input service.RegisterInput) (*service.AuthResult, error) {
			got = input
			return testAuthResult(input.Email), nil
		}

		w := doRequest(t, s, http.MethodPost, "/api/auth/register", map[string]interface{}{
			"email":       "new@example.com",
			"password":    "correct-horse",
			"preferences": fullPreferences(),
		}, "")

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decodeJSON(t, w)
		assert.Equal(t, "access", resp["token"])
		assert.Equal(t, "refresh", resp["refreshToken"])
		assert.Equal(t, map[string]interface{}{"id": testUserID, "email": "new@example.com"}, resp["user"])

		require.NotNil(t, got.Preferences)
		assert.Empty(t, got.Preferences.FirstMissing())
		assert.Equal(t, 5, *got.Preferences.AdviceOpenness)
	})

	t.Run("without preferences", func(t *testing.T) {
		s, mocks := createTestServer()
		mocks.auth.registerFunc = func(_ context.Context, input service.RegisterInput) (*service.AuthResult, error) {
			assert.Nil(t, input.Preferences)
			return testAuthResult(input.Email), nil
		}

		w := doRequest(t, s, http.MethodPost, "/api/auth/register", map[string]string{
			"email": "new@example.com", "password": "correct-horse",
		}, "")
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("duplicate", func(t *testing.T) {
		s, mocks := createTestServer()
		mocks.auth.registerFunc = func(context.Context, service.RegisterInput) (*service.AuthResult, error) {
			return nil, apperrors.NewConflictError("User already exists")
		}

		w := doRequest(t, s, http.MethodPost, "/api/auth/register", map[string]string{
			"email": "dup@example.com", "password": "correct-horse",
		}, "")

		assert.Equal(t, http.StatusConflict, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "User already exists", resp.Error)
		assert.Equal(t, apperrors.CodeConflict, resp.Code)
	})
}

func TestRegister_Validation(t *testing.T) {
	incomplete := fullPreferences()
	delete(incomplete, "volatilityTolerance")

	outOfRange := fullPreferences()
	outOfRange["growthFocus"] = 11

	tests := []struct {
		name    string
		body    interface{}
		field   string
		message string
	}{
		{
			name:    "bad email",
			body:    map[string]string{"email": "not-an-email", "password": "correct-horse"},
			field:   "email",
			message: "Invalid email format",
		},
		{
			name:    "short password",
			body:    map[string]string{"email": "a@b.co", "password": "short"},
			field:   "password",
			message: "Password must be at least 8 characters",
		},
		{
			name:    "incomplete preferences",
			body:    map[string]interface{}{"email": "a@b.co", "password": "correct-horse", "preferences": incomplete},
			field:   "preferences.volatilityTolerance",
			message: "volatilityTolerance is required",
		},
		{
			name:    "preference out of range",
			body:    map[string]interface{}{"email": "a@b.co", "password": "correct-horse", "preferences": outOfRange},
			field:   "preferences.growthFocus",
			message: "must be between 1 and 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mocks := createTestServer()
			mocks.auth.registerFunc = func(context.Context, service.RegisterInput) (*service.AuthResult, error) {
				t.Fatal("service must not be called")
				return nil, nil
			}

			w := doRequest(t, s, http.MethodPost, "/api/auth/register", tt.body, "")

			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeJSON(t, w)
			assert.Equal(t, "Validation failed", resp["error"])
			assert.Equal(t, apperrors.CodeValidation, resp["code"])
			assert.Contains(t, resp["details"], map[string]interface{}{"field": tt.field, "message": tt.message})
		})
	}
}

func TestRegister_MalformedBody(t *testing.T) {
	s, _ := createTestServer()

	for _, body := range []string{"not json", `{"email":"a@b.co","password":"correct-horse","role":"admin"}`} {
		w := doRequest(t, s, http.MethodPost, "/api/auth/register", body, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, ErrCodeInvalidBody, decodeError(t, w).Code)
	}
}

func TestLogin(t *testing.T) {
	s, mocks := createTestServer()
	mocks.auth.loginFunc = func(_ context.Context, email, password string) (*service.AuthResult, error) {
		if password != "correct-horse" {
			return nil, apperrors.NewUnauthorizedError("Invalid credentials")
		}
		return testAuthResult(email), nil
	}

	w := doRequest(t, s, http.MethodPost, "/api/auth/login", map[string]string{"email": testUserEmail, "password": "correct-horse"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "access", decodeJSON(t, w)["token"])

	w = doRequest(t, s, http.MethodPost, "/api/auth/login", map[string]string{"email": testUserEmail, "password": "wrong-horse"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decodeError(t, w).Error)

	w = doRequest(t, s, http.MethodPost, "/api/auth/login", map[string]string{"email": testUserEmail}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeJSON(t, w)["details"], map[string]interface{}{"field": "password", "message": "Password is required"})
}

func TestValidateToken(t *testing.T) {
	s, mocks := createTestServer()
	mocks.auth.validateFunc = func(_ context.Context, token string) service.TokenValidation {
		if token == "expired" {
			return service.TokenValidation{Valid: false, Error: "Token expired"}
		}
		return service.TokenValidation{Valid: true, User: &models.PublicUser{ID: testUserID, Email: testUserEmail}}
	}

	w := doRequest(t, s, http.MethodPost, "/api/auth/validate", map[string]string{"token": "good"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON(t, w)
	assert.Equal(t, true, resp["valid"])
	assert.Equal(t, testUserID, resp["user"].(map[string]interface{})["id"])

	w = doRequest(t, s, http.MethodPost, "/api/auth/validate", map[string]string{"token": "expired"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"valid": false, "error": "Token expired"}, decodeJSON(t, w))

	w = doRequest(t, s, http.MethodPost, "/api/auth/validate", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"valid": false, "error": "Invalid token"}, decodeJSON(t, w))
}

func TestRefresh(t *testing.T) {
	s, mocks := createTestServer()
	mocks.auth.refreshFunc = func(_ context.Context, token string) (*service.AuthResult, error) {
		if token != "refresh-1" {
			return nil, apperrors.NewUnauthorizedError("Invalid token")
		}
		return testAuthResult(testUserEmail), nil
	}

	w := doRequest(t, s, http.MethodPost, "/api/auth/refresh", map[string]string{"refreshToken": "refresh-1"}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodPost, "/api/auth/refresh", map[string]string{"refreshToken": "stolen"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, s, http.MethodPost, "/api/auth/refresh", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdatePassword(t *testing.T) {
	s, mocks := createTestServer()
	mocks.auth.updatePasswordFunc = func(_ context.Context, userID, current, next string) error {
		assert.Equal(t, testUserID, userID)
		if current != "old-password" {
			return apperrors.NewUnauthorizedError("Current password is incorrect")
		}
		return nil
	}

	w := doRequest(t, s, http.MethodPatch, "/api/auth/password", map[string]string{
		"currentPassword": "old-password", "newPassword": "new-password",
	}, testToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"success": true}, decodeJSON(t, w))

	w = doRequest(t, s, http.MethodPatch, "/api/auth/password", map[string]string{
		"currentPassword": "guess", "newPassword": "new-password",
	}, testToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Current password is incorrect", decodeError(t, w).Error)

	w = doRequest(t, s, http.MethodPatch, "/api/auth/password", map[string]string{
		"currentPassword": "", "newPassword": "short",
	}, testToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	details := decodeJSON(t, w)["details"]
	assert.Contains(t, details, map[string]interface{}{"field": "currentPassword", "message": "Current password is required"})
	assert.Contains(t, details, map[string]interface{}{"field": "newPassword", "message": "New password must be at least 8 characters"})
}

func TestDeleteAccount(t *testing.T) {
	s, mocks := createTestServer()
	var deleted string
	mocks.auth.deleteFunc = func(_ context.Context, userID string) error {
		deleted = userID
		return nil
	}

	w := doRequest(t, s, http.MethodDelete, "/api/auth/account", nil, testToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"success": true}, decodeJSON(t, w))
	assert.Equal(t, testUserID, deleted)
}

func TestGetProfile(t *testing.T) {
	s, mocks := createTestServer()
	mocks.profiles.getPrefsFunc = func(_ context.Context, userID string) (*models.InvestmentPreferences, error) {
		return &models.InvestmentPreferences{UserID: userID, RiskAversion: 3}, nil
	}
	mocks.profiles.getWalletsFunc = func(_ context.Context, userID string) ([]*models.ConnectedWallet, error) {
		return []*models.ConnectedWallet{{ID: testWalletID, UserID: userID, WalletAddress: testETHWallet, Blockchain: types.BlockchainEthereum}}, nil
	}

	w := doRequest(t, s, http.MethodGet, "/api/user/profile", nil, testToken)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON(t, w)
	assert.Equal(t, map[string]interface{}{"id": testUserID, "email": testUserEmail}, resp["user"])
	assert.Equal(t, 3.0, resp["preferences"].(map[string]interface{})["riskAversion"])
	assert.Len(t, resp["wallets"], 1)
}

func TestGetProfile_Empty(t *testing.T) {
	s, _ := createTestServer()

	w := doRequest(t, s, http.MethodGet, "/api/user/profile", nil, testToken)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON(t, w)
	assert.Nil(t, resp["preferences"])
	assert.Equal(t, []interface{}{}, resp["wallets"])
}

func TestGetProfile_ServiceErrorIsHidden(t *testing.T) {
	s, mocks := createTestServer()
	mocks.profiles.getWalletsFunc = func(context.Context, string) ([]*models.ConnectedWallet, error) {
		return nil, apperrors.NewDatabaseError("list wallets", errors.New("pq: relation does not exist"))
	}

	w := doRequest(t, s, http.MethodGet, "/api/user/profile", nil, testToken)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "Internal server error", resp.Error)
	assert.Equal(t, apperrors.CodeInternal, resp.Code)
	assert.NotContains(t, w.Body.String(), "relation")
}

func TestPreferences(t *testing.T) {
	s, mocks := createTestServer()
	var got *models.PreferencesUpdate
	mocks.profiles.updatePrefsFunc = func(_ context.Context, userID string, update *models.PreferencesUpdate) (*models.InvestmentPreferences, error) {
		got = update
		p := &models.InvestmentPreferences{UserID: userID}
		update.ApplyTo(p)
		return p, nil
	}

	w := doRequest(t, s, http.MethodGet, "/api/user/preferences", nil, testToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"preferences": nil}, decodeJSON(t, w))

	w = doRequest(t, s, http.MethodPatch, "/api/user/preferences", map[string]int{"riskAversion": 9}, testToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, 9, *got.RiskAversion)
	assert.Nil(t, got.GrowthFocus)
	assert.Equal(t, 9.0, decodeJSON(t, w)["preferences"].(map[string]interface{})["riskAversion"])

	w = doRequest(t, s, http.MethodPatch, "/api/user/preferences", map[string]int{"riskAversion": 0}, testToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeJSON(t, w)["details"], map[string]interface{}{"field": "riskAversion", "message": "must be between 1 and 10"})
}

func TestPreferences_MissingFieldFromService(t *testing.T) {
	s, mocks := createTestServer()
	mocks.profiles.updatePrefsFunc = func(context.Context, string, *models.PreferencesUpdate) (*models.InvestmentPreferences, error) {
		return nil, apperrors.NewValidationError("Missing required field: growthFocus")
	}

	w := doRequest(t, s, http.MethodPatch, "/api/user/preferences", map[string]int{"riskAversion": 4}, testToken)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required field: growthFocus", decodeError(t, w).Error)
}

func TestListWallets(t *testing.T) {
	s, mocks := createTestServer()
	syncedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mocks.profiles.listViewsFunc = func(_ context.Context, userID string) ([]models.WalletView, error) {
		return []models.WalletView{{
			ID:            testWalletID,
			UserID:        userID,
			WalletAddress: testETHWallet,
			Blockchain:    types.BlockchainEthereum,
			IsPrimary:     true,
			Balance:       1.5,
			BalanceUSD:    3000,
			LastSync:      &syncedAt,
		}}, nil
	}

	w := doRequest(t, s, http.MethodGet, "/api/wallets", nil, testToken)

	require.Equal(t, http.StatusOK, w.Code)
	wallets := decodeJSON(t, w)["wallets"].([]interface{})
	require.Len(t, wallets, 1)
	wallet := wallets[0].(map[string]interface{})
	assert.Equal(t, 3000.0, wallet["balanceUsd"])
	assert.Equal(t, "2024-03-01T12:00:00Z", wallet["lastSync"])
}

func TestConnectWallet(t *testing.T) {
	s, mocks := createTestServer()
	var got models.NewWallet
	mocks.profiles.addWalletFunc = func(_ context.Context, userID string, input models.NewWallet) (*models.ConnectedWallet, error) {
		got = input
		return &models.ConnectedWallet{ID: testWalletID, UserID: userID, WalletAddress: input.WalletAddress, Blockchain: input.Blockchain, IsPrimary: true}, nil
	}

	w := doRequest(t, s, http.MethodPost, "/api/wallets/connect", map[string]string{
		"walletAddress": testETHWallet, "blockchain": "ethereum", "nickname": "cold storage",
	}, testToken)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	wallet := decodeJSON(t, w)["wallet"].(map[string]interface{})
	assert.Equal(t, testWalletID, wallet["id"])
	assert.Equal(t, true, wallet["isPrimary"])
	assert.Equal(t, types.BlockchainEthereum, got.Blockchain)
	require.NotNil(t, got.Nickname)
	assert.Equal(t, "cold storage", *got.Nickname)
}

func TestConnectWallet_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]string
		serviceErr error
		wantStatus int
		wantError  string
		wantDetail map[string]interface{}
	}{
		{
			name:       "missing address",
			body:       map[string]string{"blockchain": "bitcoin"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Validation failed",
			wantDetail: map[string]interface{}{"field": "walletAddress", "message": "Wallet address is required"},
		},
		{
			name:       "unsupported chain",
			body:       map[string]string{"walletAddress": testETHWallet, "blockchain": "solana"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Validation failed",
			wantDetail: map[string]interface{}{"field": "blockchain", "message": "Blockchain must be bitcoin or ethereum"},
		},
		{
			name:       "nickname too long",
			body:       map[string]string{"walletAddress": testETHWallet, "blockchain": "ethereum", "nickname": strings.Repeat("n", 51)},
			wantStatus: http.StatusBadRequest,
			wantError:  "Validation failed",
			wantDetail: map[string]interface{}{"field": "nickname", "message": "Nickname must be at most 50 characters"},
		},
		{
			name:       "invalid address",
			body:       map[string]string{"walletAddress": "0x123", "blockchain": "ethereum"},
			serviceErr: apperrors.NewValidationError("Invalid wallet address"),
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid wallet address",
		},
		{
			name:       "already connected",
			body:       map[string]string{"walletAddress": testETHWallet, "blockchain": "ethereum"},
			serviceErr: apperrors.NewConflictError("Wallet already connected"),
			wantStatus: http.StatusConflict,
			wantError:  "Wallet already connected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mocks := createTestServer()
			mocks.profiles.addWalletFunc = func(context.Context, string, models.NewWallet) (*models.ConnectedWallet, error) {
				if tt.serviceErr == nil {
					t.Fatal("service must not be called")
				}
				return nil, tt.serviceErr
			}

			w := doRequest(t, s, http.MethodPost, "/api/wallets/connect", tt.body, testToken)

			require.Equal(t, tt.wantStatus, w.Code)
			resp := decodeJSON(t, w)
			assert.Equal(t, tt.wantError, resp["error"])
			if tt.wantDetail != nil {
				assert.Contains(t, resp["details"], tt.wantDetail)
			}
		})
	}
}

func TestWalletByID(t *testing.T) {
	s, mocks := createTestServer()
	mocks.profiles.removeWalletFunc = func(_ context.Context, _, walletID string) error {
		if walletID != testWalletID {
			return apperrors.NewNotFoundError("Wallet not found")
		}
		return nil
	}

	t.Run("disconnect", func(t *testing.T) {
		w := doRequest(t, s, http.MethodDelete, "/api/wallets/"+testWalletID, nil, testToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]interface{}{"success": true}, decodeJSON(t, w))
	})

	t.Run("disconnect unknown", func(t *testing.T) {
		w := doRequest(t, s, http.MethodDelete, "/api/wallets/00000000-0000-0000-0000-000000000000", nil, testToken)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Wallet not found", decodeError(t, w).Error)
	})

	t.Run("set primary", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPatch, "/api/wallets/"+testWalletID+"/primary", nil, testToken)
		require.Equal(t, http.StatusOK, w.Code)
		wallet := decodeJSON(t, w)["wallet"].(map[string]interface{})
		assert.Equal(t, true, wallet["isPrimary"])
	})

	for _, path := range []string{"/api/wallets/not-a-uuid", "/api/wallets/not-a-uuid/primary"} {
		method := http.MethodDelete
		if strings.HasSuffix(path, "/primary") {
			method = http.MethodPatch
		}
		t.Run("invalid id "+method, func(t *testing.T) {
			w := doRequest(t, s, method, path, nil, testToken)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, "Invalid wallet ID", resp.Error)
			assert.Equal(t, apperrors.CodeValidation, resp.Code)
		})
	}
}

func TestGenerateAnalysis(t *testing.T) {
	s, mocks := createTestServer()
	mocks.analysis.generateFunc = func(_ context.Context, userID, address string, chain types.Blockchain) (*models.WalletAnalysis, error) {
		assert.Equal(t, testUserID, userID)
		if address == "bad" {
			return nil, apperrors.NewInvalidAddressError("Invalid ethereum address: bad", address)
		}
		return &models.WalletAnalysis{
			ID:            "analysis-1",
			UserID:        userID,
			WalletAddress: address,
			Blockchain:    chain,
			AnalysisData: models.AnalysisData{
				ProfitLossResult: types.ProfitLossResult{TotalProfitLoss: 2000, TransactionCount: 2},
			},
		}, nil
	}

	w := doRequest(t, s, http.MethodPost, "/api/analysis/generate", map[string]string{
		"walletAddress": testETHWallet, "blockchain": "ethereum",
	}, testToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	analysis := decodeJSON(t, w)["analysis"].(map[string]interface{})
	assert.Equal(t, "analysis-1", analysis["id"])
	assert.Equal(t, 2000.0, analysis["analysisData"].(map[string]interface{})["totalProfitLoss"])

	w = doRequest(t, s, http.MethodPost, "/api/analysis/generate", map[string]string{
		"walletAddress": "bad", "blockchain": "ethereum",
	}, testToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeInvalidAddress, decodeError(t, w).Code)

	w = doRequest(t, s, http.MethodPost, "/api/analysis/generate", map[string]string{"walletAddress": testETHWallet}, testToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateAnalysis_UpstreamFailure(t *testing.T) {
	s, mocks := createTestServer()
	mocks.analysis.generateFunc = func(context.Context, string, string, types.Blockchain) (*models.WalletAnalysis, error) {
		return nil, apperrors.NewProviderError("coingecko", "CoinGecko API error: 429")
	}

	w := doRequest(t, s, http.MethodPost, "/api/analysis/generate", map[string]string{
		"walletAddress": testETHWallet, "blockchain": "ethereum",
	}, testToken)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "Internal server error", resp.Error)
	assert.Equal(t, apperrors.CodeInternal, resp.Code)
}

func TestAnalysisHistory(t *testing.T) {
	s, mocks := createTestServer()
	var got service.HistoryOptions
	mocks.analysis.historyFunc = func(_ context.Context, _ string, opts service.HistoryOptions) (*service.AnalysisHistory, error) {
		got = opts
		return &service.AnalysisHistory{
			Analyses:   []*models.WalletAnalysis{{ID: "a1"}},
			Pagination: types.NewPagination(opts.Page, opts.Limit, 21),
		}, nil
	}

	w := doRequest(t, s, http.MethodGet, "/api/analysis/history?page=2&limit=10&blockchain=bitcoin", nil, testToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 10, got.Limit)
	require.NotNil(t, got.Blockchain)
	assert.Equal(t, types.BlockchainBitcoin, *got.Blockchain)

	resp := decodeJSON(t, w)
	assert.Len(t, resp["analyses"], 1)
	assert.Equal(t, map[string]interface{}{
		"currentPage": 2.0, "totalPages": 3.0, "totalItems": 21.0, "itemsPerPage": 10.0,
	}, resp["pagination"])

	w = doRequest(t, s, http.MethodGet, "/api/analysis/history", nil, testToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, service.DefaultHistoryLimit, got.Limit)
	assert.Nil(t, got.Blockchain)
}

func TestAnalysisHistory_InvalidQuery(t *testing.T) {
	s, _ := createTestServer()

	for _, query := range []string{"page=0", "limit=51", "limit=abc", "blockchain=dogecoin"} {
		t.Run(query, func(t *testing.T) {
			w := doRequest(t, s, http.MethodGet, "/api/analysis/history?"+query, nil, testToken)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Invalid query parameters", decodeError(t, w).Error)
		})
	}
}

func TestGetAnalysis(t *testing.T) {
	s, mocks := createTestServer()
	mocks.analysis.getFunc = func(_ context.Context, userID, id string) (*models.WalletAnalysis, error) {
		if id != "analysis-1" {
			return nil, apperrors.NewNotFoundError("Analysis not found")
		}
		return &models.WalletAnalysis{ID: id, UserID: userID}, nil
	}

	w := doRequest(t, s, http.MethodGet, "/api/analysis/analysis-1", nil, testToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "analysis-1", decodeJSON(t, w)["analysis"].(map[string]interface{})["id"])

	w = doRequest(t, s, http.MethodGet, "/api/analysis/missing", nil, testToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "Analysis not found", resp.Error)
	assert.Equal(t, apperrors.CodeNotFound, resp.Code)
}

func TestAnalysisSummary(t *testing.T) {
	s, _ := createTestServer()

	w := doRequest(t, s, http.MethodGet, "/api/analysis/analysis-1/summary", nil, testToken)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"summary": "Analysis complete."}, decodeJSON(t, w))
}

func TestAnalysisSummary_InsightsUnavailable(t *testing.T) {
	s, mocks := createTestServer()
	mocks.analysis.summaryFunc = func(context.Context, string, string) (string, error) {
		return "", apperrors.NewServiceUnavailableError("gemini")
	}

	w := doRequest(t, s, http.MethodGet, "/api/analysis/analysis-1/summary", nil, testToken)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, apperrors.CodeServiceUnavail, resp.Code)
	assert.Equal(t, "service unavailable: gemini", resp.Error)
}

func TestPrices(t *testing.T) {
	s, mocks := createTestServer()

	w := doRequest(t, s, http.MethodGet, "/api/prices", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON(t, w)
	assert.Equal(t, map[string]interface{}{"usd": 2000.0, "usd_24h_change": -0.5}, resp["ethereum"])

	var gotDays int
	mocks.analysis.priceHistoryFunc = func(_ context.Context, chain types.Blockchain, days int) ([]types.PricePoint, error) {
		gotDays = days
		return []types.PricePoint{{Timestamp: 1, Price: 2}}, nil
	}

	w = doRequest(t, s, http.MethodGet, "/api/prices/ethereum/history", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30, gotDays)
	assert.Equal(t, "ethereum", decodeJSON(t, w)["coin"])

	w = doRequest(t, s, http.MethodGet, "/api/prices/Bitcoin/history?days=7", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, gotDays)
	assert.Equal(t, "bitcoin", decodeJSON(t, w)["coin"])
}

func TestPriceHistory_Invalid(t *testing.T) {
	s, _ := createTestServer()

	for _, days := range []string{"0", "366", "week"} {
		w := doRequest(t, s, http.MethodGet, "/api/prices/bitcoin/history?days="+days, nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, days)
		assert.Equal(t, "days must be between 1 and 365", decodeError(t, w).Error)
	}

	w := doRequest(t, s, http.MethodGet, "/api/prices/dogecoin/history", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid coin", decodeError(t, w).Error)
}
