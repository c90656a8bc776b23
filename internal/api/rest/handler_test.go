package rest_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace/internal/api/middleware"
	"github.com/feral-file/ff-marketplace/internal/api/rest"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/mocks"
	"github.com/feral-file/ff-marketplace/internal/wallet"
	"github.com/feral-file/ff-marketplace/internal/workflows"
)

const (
	testOwner  = "0x99fc8AD516FBCC9bA3123D56e63A35d05AA9EFB8"
	testAPIKey = "test-api-key"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// testHandlerMocks contains all the mocks needed for testing the REST handlers
type testHandlerMocks struct {
	ctrl     *gomock.Controller
	provider *mocks.MockProvider
	minter   *mocks.MockMinter
	lister   *mocks.MockOwnershipLister
	signer   wallet.Signer
	router   *gin.Engine
}

func setupTestHandler(t *testing.T, cfg rest.Config) *testHandlerMocks {
	t.Helper()
	ctrl := gomock.NewController(t)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer, err := wallet.NewKeySigner(key, big.NewInt(11155111))
	require.NoError(t, err)

	tm := &testHandlerMocks{
		ctrl:     ctrl,
		provider: mocks.NewMockProvider(ctrl),
		minter:   mocks.NewMockMinter(ctrl),
		lister:   mocks.NewMockOwnershipLister(ctrl),
		signer:   signer,
		router:   gin.New(),
	}

	handler := rest.NewHandler(cfg, tm.provider, tm.minter, tm.lister, nil)
	rest.SetupRoutes(tm.router, handler, middleware.AuthConfig{APIKeys: []string{testAPIKey}}, nil)

	return tm
}

func (tm *testHandlerMocks) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	tm.router.ServeHTTP(w, req)
	return w
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type mediaPart struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func newMintRequest(t *testing.T, fields map[string]string, media ...mediaPart) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, m := range media {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="`+m.field+`"; filename="`+m.filename+`"`)
		if m.contentType != "" {
			header.Set("Content-Type", m.contentType)
		}
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(m.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mint", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "ApiKey "+testAPIKey)
	return req
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestHealthCheck(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{})

	w := tm.serve(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"ff-marketplace-api"}`, w.Body.String())
}

func TestGetSession(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{})

	tm.provider.EXPECT().ConnectedAddress().Return(testOwner)
	tm.provider.EXPECT().IsConnected().Return(true)
	tm.provider.EXPECT().ChainID().Return(big.NewInt(11155111))

	w := tm.serve(httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"address":"`+testOwner+`","chain_id":"11155111","connected":true}`, w.Body.String())
}

func TestMint_Success(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{})

	tm.provider.EXPECT().Signer(gomock.Any()).Return(tm.signer, nil)
	tm.minter.EXPECT().Mint(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req workflows.MintRequest) (*domain.MintReceipt, error) {
			assert.Equal(t, "Dawn", req.Name)
			assert.Equal(t, "First light", req.Description)
			assert.Equal(t, "Ada", req.Artist)
			assert.Equal(t, testOwner, req.Address)
			assert.Equal(t, tm.signer, req.Signer)
			require.Len(t, req.Media, 1)
			assert.Equal(t, "dawn.png", req.Media[0].Filename)
			// Sniffed because the client sent no content type
			assert.Equal(t, "image/png", req.Media[0].ContentType)
			assert.Equal(t, pngHeader, req.Media[0].Data)

			return &domain.MintReceipt{
				TokenID:      3,
				Owner:        testOwner,
				ImageHash:    "QmImage",
				MetadataHash: "QmMetadata",
				TxHash:       "0xabc",
				BlockNumber:  12,
				GasUsed:      21000,
			}, nil
		})

	req := newMintRequest(t, map[string]string{
		"name":        "Dawn",
		"description": "First light",
		"artist":      "Ada",
		"address":     testOwner,
	}, mediaPart{field: "media", filename: "dawn.png", data: pngHeader})

	w := tm.serve(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var receipt domain.MintReceipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipt))
	assert.Equal(t, domain.TokenID(3), receipt.TokenID)
	assert.Equal(t, "0xabc", receipt.TxHash)
}

func TestMint_RequiresAuth(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{})

	req := newMintRequest(t, map[string]string{"name": "Dawn"})
	req.Header.Del("Authorization")

	w := tm.serve(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeError(t, w).Error.Code)
}

func TestMint_PayloadTooLarge(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{MaxUploadSize: 64})

	req := newMintRequest(t, map[string]string{"name": "Dawn"},
		mediaPart{field: "media", filename: "big.bin", data: bytes.Repeat([]byte("x"), 1024)})

	w := tm.serve(req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "payload_too_large", decodeError(t, w).Error.Code)
}

func TestMint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		code       string
	}{
		{
			name:       "validation",
			err:        &domain.ValidationError{Fields: []string{"name", "media"}},
			statusCode: http.StatusUnprocessableEntity,
			code:       "validation_failed",
		},
		{
			name:       "invalid address",
			err:        domain.ErrInvalidAddress,
			statusCode: http.StatusBadRequest,
			code:       "bad_request",
		},
		{
			name:       "signer required",
			err:        domain.ErrSignerRequired,
			statusCode: http.StatusUnauthorized,
			code:       "signer_required",
		},
		{
			name:       "upload failed",
			err:        &domain.UploadError{Op: "upload_json", Err: errors.New("502 Bad Gateway")},
			statusCode: http.StatusBadGateway,
			code:       "upload_failed",
		},
		{
			name:       "mint failed",
			err:        &domain.MintError{TokenID: 4, Message: "execution reverted"},
			statusCode: http.StatusBadGateway,
			code:       "mint_failed",
		},
		{
			name:       "timed out",
			err:        &domain.MintError{TokenID: 4, Message: "context deadline exceeded", Err: context.DeadlineExceeded},
			statusCode: http.StatusGatewayTimeout,
			code:       "timeout",
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			statusCode: http.StatusInternalServerError,
			code:       "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTestHandler(t, rest.Config{})
			tm.provider.EXPECT().Signer(gomock.Any()).Return(tm.signer, nil)
			tm.minter.EXPECT().Mint(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			req := newMintRequest(t, map[string]string{"name": "Dawn"},
				mediaPart{field: "media", filename: "dawn.png", contentType: "image/png", data: pngHeader})

			w := tm.serve(req)
			assert.Equal(t, tt.statusCode, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error.Code)
		})
	}
}

func TestMint_ValidationDetailsListFields(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{})
	tm.provider.EXPECT().Signer(gomock.Any()).Return(tm.signer, nil)
	tm.minter.EXPECT().Mint(gomock.Any(), gomock.Any()).
		Return(nil, &domain.ValidationError{Fields: []string{"description", "artist"}})

	w := tm.serve(newMintRequest(t, map[string]string{"name": "Dawn"}))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "missing fields: description, artist", decodeError(t, w).Error.Details)
}

func TestMint_NotMultipartIsValidated(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{})
	tm.provider.EXPECT().Signer(gomock.Any()).Return(tm.signer, nil)
	tm.minter.EXPECT().Mint(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req workflows.MintRequest) (*domain.MintReceipt, error) {
			assert.Empty(t, req.Name)
			assert.Empty(t, req.Media)
			return nil, &domain.ValidationError{Fields: []string{"name", "description", "artist", "media"}}
		})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mint", strings.NewReader(`{"name":"Dawn"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "ApiKey "+testAPIKey)

	w := tm.serve(req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestMint_DisconnectedWallet(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{})
	tm.provider.EXPECT().Signer(gomock.Any()).Return(nil, domain.ErrSignerRequired)

	w := tm.serve(newMintRequest(t, map[string]string{"name": "Dawn"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "signer_required", decodeError(t, w).Error.Code)
}

func TestListOwnedTokens(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{})

	tm.provider.EXPECT().Signer(gomock.Any()).Return(tm.signer, nil)
	tm.lister.EXPECT().ListOwnedTokens(gomock.Any(), tm.signer, testOwner).
		Return([]domain.Token{
			{TokenID: 1, Owner: testOwner, ImageURL: "https://gateway.example.com/ipfs/QmA"},
			{TokenID: 4, Owner: testOwner, ImageURL: ""},
		}, nil)

	// Lowercase addresses are normalized to checksum form
	w := tm.serve(httptest.NewRequest(http.MethodGet, "/api/v1/owners/"+strings.ToLower(testOwner)+"/tokens", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp rest.TokenListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testOwner, resp.Address)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, domain.TokenID(1), resp.Tokens[0].TokenID)
	assert.Equal(t, domain.TokenID(4), resp.Tokens[1].TokenID)
}

func TestListOwnedTokens_Empty(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{})

	tm.provider.EXPECT().Signer(gomock.Any()).Return(tm.signer, nil)
	tm.lister.EXPECT().ListOwnedTokens(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	w := tm.serve(httptest.NewRequest(http.MethodGet, "/api/v1/owners/"+testOwner+"/tokens", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"address":"`+testOwner+`","tokens":[],"count":0}`, w.Body.String())
}

func TestListOwnedTokens_InvalidAddress(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{})

	w := tm.serve(httptest.NewRequest(http.MethodGet, "/api/v1/owners/not-an-address/tokens", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeError(t, w).Error.Code)
}

func TestGetToken(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{})
	isImage := true

	tm.provider.EXPECT().Signer(gomock.Any()).Return(tm.signer, nil)
	tm.lister.EXPECT().TokenDetails(gomock.Any(), tm.signer, domain.TokenID(7)).
		Return(&domain.Token{TokenID: 7, Owner: testOwner, Name: "Dawn", ImageURL: "https://gateway.example.com/ipfs/QmA", IsImage: &isImage}, nil)

	w := tm.serve(httptest.NewRequest(http.MethodGet, "/api/v1/tokens/7", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var token domain.Token
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &token))
	assert.Equal(t, "Dawn", token.Name)
	require.NotNil(t, token.IsImage)
	assert.True(t, *token.IsImage)
}

func TestGetToken_Errors(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		tm := setupTestHandler(t, rest.Config{})

		w := tm.serve(httptest.NewRequest(http.MethodGet, "/api/v1/tokens/0", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		tm := setupTestHandler(t, rest.Config{})
		tm.provider.EXPECT().Signer(gomock.Any()).Return(tm.signer, nil)
		tm.lister.EXPECT().TokenDetails(gomock.Any(), gomock.Any(), domain.TokenID(99)).
			Return(nil, domain.ErrTokenNotFound)

		w := tm.serve(httptest.NewRequest(http.MethodGet, "/api/v1/tokens/99", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decodeError(t, w).Error.Code)
	})
}

func TestGetSupply(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{})

	tm.provider.EXPECT().Signer(gomock.Any()).Return(tm.signer, nil)
	tm.lister.EXPECT().TotalSupply(gomock.Any(), tm.signer).Return(uint64(12), nil)

	w := tm.serve(httptest.NewRequest(http.MethodGet, "/api/v1/supply", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_supply":12}`, w.Body.String())
}

func TestReadEndpoints_Timeout(t *testing.T) {
	deadline := fmt.Errorf("failed to read total supply: %w", context.DeadlineExceeded)

	tests := []struct {
		name   string
		path   string
		expect func(tm *testHandlerMocks)
	}{
		{
			name: "owned tokens",
			path: "/api/v1/owners/" + testOwner + "/tokens",
			expect: func(tm *testHandlerMocks) {
				tm.lister.EXPECT().ListOwnedTokens(gomock.Any(), gomock.Any(), testOwner).Return(nil, deadline)
			},
		},
		{
			name: "token",
			path: "/api/v1/tokens/3",
			expect: func(tm *testHandlerMocks) {
				tm.lister.EXPECT().TokenDetails(gomock.Any(), gomock.Any(), domain.TokenID(3)).Return(nil, deadline)
			},
		},
		{
			name: "supply",
			path: "/api/v1/supply",
			expect: func(tm *testHandlerMocks) {
				tm.lister.EXPECT().TotalSupply(gomock.Any(), gomock.Any()).Return(uint64(0), deadline)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTestHandler(t, rest.Config{})
			tm.provider.EXPECT().Signer(gomock.Any()).Return(tm.signer, nil)
			tt.expect(tm)

			w := tm.serve(httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusGatewayTimeout, w.Code)
			assert.Equal(t, "timeout", decodeError(t, w).Error.Code)
		})
	}
}

// readEvent reads one server-sent event from the stream
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" || data != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func TestWatchOwnedTokens(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{RefreshInterval: 20 * time.Millisecond})
	server := httptest.NewServer(tm.router)
	defer server.Close()

	tm.provider.EXPECT().Signer(gomock.Any()).Return(tm.signer, nil).MinTimes(2)
	first := tm.lister.EXPECT().ListOwnedTokens(gomock.Any(), tm.signer, testOwner).
		Return([]domain.Token{{TokenID: 1, Owner: testOwner}}, nil)
	tm.lister.EXPECT().ListOwnedTokens(gomock.Any(), tm.signer, testOwner).
		Return([]domain.Token{{TokenID: 1, Owner: testOwner}, {TokenID: 2, Owner: testOwner}}, nil).
		After(first).MinTimes(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/owners/"+testOwner+"/tokens/watch", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	event, data := readEvent(t, reader)
	assert.Equal(t, rest.EVENT_TOKENS, event)
	var snapshot rest.TokenListResponse
	require.NoError(t, json.Unmarshal([]byte(data), &snapshot))
	assert.Equal(t, 1, snapshot.Count)

	event, data = readEvent(t, reader)
	assert.Equal(t, rest.EVENT_TOKENS, event)
	require.NoError(t, json.Unmarshal([]byte(data), &snapshot))
	assert.Equal(t, 2, snapshot.Count)

	// Disconnecting stops the refresh loop
	cancel()
}

func TestWatchOwnedTokens_ErrorEvent(t *testing.T) {
	tm := setupTestHandler(t, rest.Config{RefreshInterval: time.Hour})
	server := httptest.NewServer(tm.router)
	defer server.Close()

	tm.provider.EXPECT().Signer(gomock.Any()).Return(nil, domain.ErrSignerRequired)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/owners/"+testOwner+"/tokens/watch", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	event, data := readEvent(t, bufio.NewReader(resp.Body))
	assert.Equal(t, rest.EVENT_ERROR, event)
	assert.Contains(t, data, `"code":"signer_required"`)
}
