package uri_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-marketplace/internal/mocks"
	"github.com/feral-file/ff-marketplace/internal/uri"
)

// pngHeader is the signature of a PNG file
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

func headResponse(status int, contentType string) *http.Response {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(nil)),
	}
}

func TestImageChecker_IsImage(t *testing.T) {
	const url = "https://gateway.example.com/ipfs/QmHash"

	tests := []struct {
		name       string
		url        string
		setupMocks func(*mocks.MockHTTPClient)
		expected   bool
	}{
		{
			name: "image content type",
			url:  url,
			setupMocks: func(mockHTTP *mocks.MockHTTPClient) {
				mockHTTP.EXPECT().Head(gomock.Any(), url).Return(headResponse(http.StatusOK, "image/png"), nil)
			},
			expected: true,
		},
		{
			name: "image content type with parameters",
			url:  url,
			setupMocks: func(mockHTTP *mocks.MockHTTPClient) {
				mockHTTP.EXPECT().Head(gomock.Any(), url).Return(headResponse(http.StatusOK, "Image/JPEG; charset=binary"), nil)
			},
			expected: true,
		},
		{
			name: "video content type",
			url:  url,
			setupMocks: func(mockHTTP *mocks.MockHTTPClient) {
				mockHTTP.EXPECT().Head(gomock.Any(), url).Return(headResponse(http.StatusOK, "video/mp4"), nil)
			},
			expected: false,
		},
		{
			name: "path containing images is not enough",
			url:  "https://example.com/images/clip.mp4",
			setupMocks: func(mockHTTP *mocks.MockHTTPClient) {
				mockHTTP.EXPECT().Head(gomock.Any(), "https://example.com/images/clip.mp4").
					Return(headResponse(http.StatusOK, "video/mp4"), nil)
			},
			expected: false,
		},
		{
			name: "missing content type sniffs image bytes",
			url:  url,
			setupMocks: func(mockHTTP *mocks.MockHTTPClient) {
				mockHTTP.EXPECT().Head(gomock.Any(), url).Return(headResponse(http.StatusOK, ""), nil)
				mockHTTP.EXPECT().GetPartialContent(gomock.Any(), url, int64(512)).Return(pngHeader, nil)
			},
			expected: true,
		},
		{
			name: "missing content type sniffs text bytes",
			url:  url,
			setupMocks: func(mockHTTP *mocks.MockHTTPClient) {
				mockHTTP.EXPECT().Head(gomock.Any(), url).Return(headResponse(http.StatusOK, ""), nil)
				mockHTTP.EXPECT().GetPartialContent(gomock.Any(), url, int64(512)).Return([]byte(`{"name":"x"}`), nil)
			},
			expected: false,
		},
		{
			name: "head method not allowed falls back to sniffing",
			url:  url,
			setupMocks: func(mockHTTP *mocks.MockHTTPClient) {
				mockHTTP.EXPECT().Head(gomock.Any(), url).Return(headResponse(http.StatusMethodNotAllowed, "text/html"), nil)
				mockHTTP.EXPECT().GetPartialContent(gomock.Any(), url, int64(512)).Return(pngHeader, nil)
			},
			expected: true,
		},
		{
			name: "head transport error assumes image",
			url:  url,
			setupMocks: func(mockHTTP *mocks.MockHTTPClient) {
				mockHTTP.EXPECT().Head(gomock.Any(), url).Return(nil, errors.New("connection refused"))
			},
			expected: true,
		},
		{
			name: "ranged get error assumes image",
			url:  url,
			setupMocks: func(mockHTTP *mocks.MockHTTPClient) {
				mockHTTP.EXPECT().Head(gomock.Any(), url).Return(headResponse(http.StatusOK, ""), nil)
				mockHTTP.EXPECT().GetPartialContent(gomock.Any(), url, int64(512)).Return(nil, errors.New("timeout"))
			},
			expected: true,
		},
		{
			name:       "empty url",
			url:        "",
			setupMocks: func(mockHTTP *mocks.MockHTTPClient) {},
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockHTTP := mocks.NewMockHTTPClient(ctrl)
			tt.setupMocks(mockHTTP)

			checker := uri.NewImageChecker(mockHTTP)
			assert.Equal(t, tt.expected, checker.IsImage(context.Background(), tt.url))
		})
	}
}
