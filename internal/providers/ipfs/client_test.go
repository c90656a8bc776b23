package ipfs_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/metrics"
	"github.com/feral-file/ff-marketplace/internal/mocks"
	"github.com/feral-file/ff-marketplace/internal/providers/ipfs"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeNode emulates the IPFS node and pinning service endpoints
type fakeNode struct {
	mu         sync.Mutex
	uploads    map[string][]byte
	pins       []map[string]string
	pinStatus  int
	retrievals []string
	server     *httptest.Server
}

func newFakeNode(t *testing.T) *fakeNode {
	t.Helper()
	node := &fakeNode{uploads: map[string][]byte{}, pinStatus: http.StatusOK}

	mux := http.NewServeMux()
	upload := func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "project", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		data, err := io.ReadAll(file)
		require.NoError(t, err)

		hash := "Qm" + header.Filename
		node.mu.Lock()
		node.uploads[hash] = data
		node.mu.Unlock()

		w.Header().Set("X-Part-Content-Type", header.Header.Get("Content-Type"))
		_ = json.NewEncoder(w).Encode(map[string]string{"Hash": hash, "Name": header.Filename})
	}
	mux.HandleFunc("/uploadfile", upload)
	mux.HandleFunc("/uploadjson", upload)
	mux.HandleFunc("/pin", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer pin-jwt", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		node.mu.Lock()
		node.pins = append(node.pins, body)
		status := node.pinStatus
		node.mu.Unlock()

		w.WriteHeader(status)
	})
	mux.HandleFunc("/retrievejson/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _, ok := r.BasicAuth()
		assert.True(t, ok)

		hash := strings.TrimPrefix(r.URL.Path, "/retrievejson/")
		node.mu.Lock()
		node.retrievals = append(node.retrievals, hash)
		data, found := node.uploads[hash]
		node.mu.Unlock()

		if !found {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	})

	mux.HandleFunc("/ipfs/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)

		node.mu.Lock()
		data, found := node.uploads[strings.TrimPrefix(r.URL.Path, "/ipfs/")]
		node.mu.Unlock()

		if !found {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	})

	node.server = httptest.NewServer(mux)
	t.Cleanup(node.server.Close)
	return node
}

func (n *fakeNode) config() ipfs.Config {
	return ipfs.Config{
		UploadFileURL:   n.server.URL + "/uploadfile",
		UploadJSONURL:   n.server.URL + "/uploadjson",
		PinHashURL:      n.server.URL + "/pin",
		RetrieveJSONURL: n.server.URL + "/retrievejson/",
		RetrieveFileURL: "https://gateway.example.com/ipfs/",
		ProjectID:       "project",
		ProjectSecret:   "secret",
		PinJWT:          "pin-jwt",
		HashStripTokens: []string{"debug"},
	}
}

func newHTTPClient() adapter.HTTPClient {
	return adapter.NewHTTPClient(adapter.HTTPClientConfig{
		Timeout:         5 * time.Second,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  50 * time.Millisecond,
	})
}

func newClient(t *testing.T, cfg ipfs.Config, m *metrics.Metrics) (ipfs.Client, *mocks.MockImageChecker) {
	t.Helper()
	ctrl := gomock.NewController(t)
	checker := mocks.NewMockImageChecker(ctrl)
	return ipfs.NewClient(cfg, newHTTPClient(), adapter.NewJCS(), adapter.NewJSON(), checker, m), checker
}

func TestClient_UploadFile(t *testing.T) {
	node := newFakeNode(t)
	client, _ := newClient(t, node.config(), nil)

	hash, err := client.UploadFile(context.Background(), domain.MediaFile{
		Filename:    "art.png",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ContentHash("Qmart.png"), hash)
	assert.Equal(t, []byte("png-bytes"), node.uploads["Qmart.png"])

	require.Len(t, node.pins, 1)
	assert.Equal(t, map[string]string{"hashToPin": "Qmart.png", "name": domain.DEFAULT_PIN_NAME}, node.pins[0])
}

func TestClient_UploadJSON_Canonical(t *testing.T) {
	node := newFakeNode(t)
	cfg := node.config()
	cfg.PinName = "collection"
	client, _ := newClient(t, cfg, nil)

	metadata := domain.TokenMetadata{
		Name:        "Dawn",
		Description: "First light",
		Image:       "QmImage",
		ExternalURL: "https://marketplace.example.com",
		Attributes:  []domain.Attribute{{TraitType: domain.TRAIT_TYPE_ARTIST, Value: "Ada"}},
	}

	hash, err := client.UploadJSON(context.Background(), metadata)
	require.NoError(t, err)
	assert.Equal(t, domain.ContentHash("Qmmetadata.json"), hash)

	expected := `{"attributes":[{"trait_type":"artist","value":"Ada"}],"description":"First light","external_url":"https://marketplace.example.com","image":"QmImage","name":"Dawn"}`
	assert.Equal(t, expected, string(node.uploads["Qmmetadata.json"]))
	assert.Equal(t, "collection", node.pins[0]["name"])

	// Round trip through RetrieveJSON
	var decoded domain.TokenMetadata
	require.NoError(t, client.RetrieveJSON(context.Background(), "ipfs://debugQmmetadata.json", &decoded))
	assert.Equal(t, metadata, decoded)
	assert.Equal(t, []string{"Qmmetadata.json"}, node.retrievals)
}

func TestClient_PinFailureIsSwallowed(t *testing.T) {
	node := newFakeNode(t)
	node.pinStatus = http.StatusInternalServerError

	reg := prometheus.NewRegistry()
	client, _ := newClient(t, node.config(), metrics.New(reg))

	hash, err := client.UploadFile(context.Background(), domain.MediaFile{Filename: "art.png", Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, domain.ContentHash("Qmart.png"), hash)
	assert.GreaterOrEqual(t, len(node.pins), 1)

	expected := `
# HELP marketplace_storage_pin_failures_total pin requests that failed after retries
# TYPE marketplace_storage_pin_failures_total counter
marketplace_storage_pin_failures_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "marketplace_storage_pin_failures_total"))
}

func TestClient_Pin_Error(t *testing.T) {
	node := newFakeNode(t)
	node.pinStatus = http.StatusUnauthorized
	client, _ := newClient(t, node.config(), nil)

	err := client.Pin(context.Background(), "QmHash", "collection")

	var uploadErr *domain.UploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, "pin", uploadErr.Op)
	assert.Len(t, node.pins, 1)
}

func TestClient_UnconfiguredEndpoints(t *testing.T) {
	client, _ := newClient(t, ipfs.Config{}, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "upload file",
			call: func() error {
				_, err := client.UploadFile(ctx, domain.MediaFile{Filename: "a.png", Data: []byte("x")})
				return err
			},
		},
		{
			name: "upload json",
			call: func() error {
				_, err := client.UploadJSON(ctx, map[string]string{"a": "b"})
				return err
			},
		},
		{
			name: "pin",
			call: func() error {
				return client.Pin(ctx, "QmHash", "collection")
			},
		},
		{
			name: "retrieve json",
			call: func() error {
				var v map[string]interface{}
				return client.RetrieveJSON(ctx, "QmHash", &v)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var uploadErr *domain.UploadError
			require.True(t, errors.As(err, &uploadErr))
			assert.ErrorIs(t, err, domain.ErrUploadEndpointUnconfigured)
		})
	}
}

func TestClient_UploadFile_RemoteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, _ := newClient(t, ipfs.Config{UploadFileURL: server.URL}, nil)

	hash, err := client.UploadFile(context.Background(), domain.MediaFile{Filename: "a.png", Data: []byte("x")})
	assert.Empty(t, hash)

	var uploadErr *domain.UploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, "upload_file", uploadErr.Op)

	var statusErr *adapter.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestClient_UploadFile_MissingHash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Name":"a.png"}`))
	}))
	defer server.Close()

	client, _ := newClient(t, ipfs.Config{UploadFileURL: server.URL}, nil)

	_, err := client.UploadFile(context.Background(), domain.MediaFile{Filename: "a.png", Data: []byte("x")})
	var uploadErr *domain.UploadError
	assert.True(t, errors.As(err, &uploadErr))
}

func TestClient_RetrieveFile(t *testing.T) {
	client, _ := newClient(t, ipfs.Config{RetrieveFileURL: "https://gateway.example.com/ipfs/"}, nil)

	tests := []struct {
		name     string
		hash     domain.ContentHash
		expected string
	}{
		{name: "empty", hash: "", expected: ""},
		{name: "blank", hash: "   ", expected: ""},
		{name: "bare", hash: "QmImage", expected: "https://gateway.example.com/ipfs/QmImage"},
		{name: "ipfs scheme", hash: "ipfs://QmImage", expected: "https://gateway.example.com/ipfs/QmImage"},
		{name: "gateway url", hash: "https://ipfs.io/ipfs/QmImage", expected: "https://gateway.example.com/ipfs/QmImage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, client.RetrieveFile(tt.hash))
		})
	}
}

func TestClient_UploadThenRetrieveFile(t *testing.T) {
	node := newFakeNode(t)
	cfg := node.config()
	cfg.RetrieveFileURL = node.server.URL + "/ipfs/"
	client, _ := newClient(t, cfg, nil)

	payload := append([]byte("\x89PNG\r\n\x1a\n"), []byte{0x00, 0xff, 0x10, 0x7f}...)
	hash, err := client.UploadFile(context.Background(), domain.MediaFile{
		Filename:    "dawn.png",
		ContentType: "image/png",
		Data:        payload,
	})
	require.NoError(t, err)

	resp, err := node.server.Client().Get(client.RetrieveFile(hash))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	served, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, served)
}

func TestClient_RetrieveFile_DefaultGateway(t *testing.T) {
	client, _ := newClient(t, ipfs.Config{}, nil)
	assert.Equal(t, domain.DEFAULT_IPFS_GATEWAY+"QmImage", client.RetrieveFile("QmImage"))
}

func TestClient_RetrieveJSON_NotFound(t *testing.T) {
	node := newFakeNode(t)
	client, _ := newClient(t, node.config(), nil)

	var v map[string]interface{}
	err := client.RetrieveJSON(context.Background(), "QmMissing", &v)

	var statusErr *adapter.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestClient_IsImageURL(t *testing.T) {
	client, checker := newClient(t, ipfs.Config{}, nil)

	checker.EXPECT().IsImage(gomock.Any(), "https://gateway.example.com/ipfs/QmImage").Return(false)
	assert.False(t, client.IsImageURL(context.Background(), "https://gateway.example.com/ipfs/QmImage"))
}
