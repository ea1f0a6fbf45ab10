package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/shouni/go-podcast-dig/pkg/retry"
)

type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	// モック設定側で *http.Response 型のnilを返すこと。
	// interface{}(nil) のままだと型アサーションがパニックする。
	return args.Get(0).(*http.Response), args.Error(1)
}

// fastRetryConfig はテストを高速化するためのリトライ設定です。
func fastRetryConfig(maxRetries uint64) retry.Config {
	return retry.Config{
		MaxRetries:      maxRetries,
		InitialInterval: 1 * time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func htmlResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func TestNew(t *testing.T) {
	t.Run("default timeout", func(t *testing.T) {
		client := New(0)
		assert.Equal(t, DefaultHTTPTimeout, client.httpClient.(*http.Client).Timeout)
	})
	t.Run("custom timeout", func(t *testing.T) {
		timeout := 30 * time.Second
		client := New(timeout)
		assert.Equal(t, timeout, client.httpClient.(*http.Client).Timeout)
	})
	t.Run("with HTTP client option", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		client := New(10*time.Second, WithHTTPClient(mockClient))
		assert.Equal(t, mockClient, client.httpClient)
	})
	t.Run("with max retries option", func(t *testing.T) {
		client := New(10*time.Second, WithMaxRetries(5))
		assert.Equal(t, uint64(5), client.retryConfig.MaxRetries)
	})
}

func TestNonRetryableHTTPError_Error(t *testing.T) {
	tests := []struct {
		name       string
		body       []byte
		expected   string
		statusCode int
	}{
		{"non-empty body", []byte("error body"), "HTTPクライアントエラー (非リトライ対象): ステータスコード 400, ボディ: error body", 400},
		{"empty body", nil, "HTTPクライアントエラー (非リトライ対象): ステータスコード 400, ボディなし", 400},
		{"truncated body", []byte(strings.Repeat("a", 1025)), "HTTPクライアントエラー (非リトライ対象): ステータスコード 400, ボディ: " + strings.Repeat("a", 1024) + "...", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &NonRetryableHTTPError{StatusCode: tt.statusCode, Body: tt.body}
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestFetchDocument(t *testing.T) {
	t.Run("successful fetch", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		mockClient.On("Do", mock.Anything).Return(
			htmlResponse(http.StatusOK, "<html><head><title>番組一覧</title></head><body></body></html>"), nil)

		client := &Client{httpClient: mockClient, retryConfig: fastRetryConfig(0)}
		doc, err := client.FetchDocument(context.Background(), "https://example.com")
		assert.NoError(t, err)
		assert.NotNil(t, doc)
		assert.Equal(t, "番組一覧", doc.Find("title").Text())
		mockClient.AssertExpectations(t)
	})

	t.Run("user agent header is set", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
			return req.Header.Get("User-Agent") == UserAgent
		})).Return(htmlResponse(http.StatusOK, "<html></html>"), nil)

		client := &Client{httpClient: mockClient, retryConfig: fastRetryConfig(0)}
		_, err := client.FetchDocument(context.Background(), "https://example.com")
		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("http client error is retried", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		var resp *http.Response
		mockClient.On("Do", mock.Anything).Return(resp, errors.New("network error"))

		client := &Client{httpClient: mockClient, retryConfig: fastRetryConfig(2)}
		doc, err := client.FetchDocument(context.Background(), "https://example.com")
		assert.Error(t, err)
		assert.Nil(t, doc)
		// 初回 + 2回のリトライ
		mockClient.AssertNumberOfCalls(t, "Do", 3)
	})

	t.Run("server error is retried then fails", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		mockClient.On("Do", mock.Anything).Return(
			htmlResponse(http.StatusInternalServerError, "boom"), nil)

		client := &Client{httpClient: mockClient, retryConfig: fastRetryConfig(1)}
		doc, err := client.FetchDocument(context.Background(), "https://example.com")
		assert.Error(t, err)
		assert.Nil(t, doc)
		assert.Contains(t, err.Error(), "5xx")
		mockClient.AssertNumberOfCalls(t, "Do", 2)
	})

	t.Run("non-retryable error is not retried", func(t *testing.T) {
		mockClient := new(MockHTTPClient)
		mockClient.On("Do", mock.Anything).Return(
			htmlResponse(http.StatusNotFound, "not found"), nil)

		client := &Client{httpClient: mockClient, retryConfig: fastRetryConfig(3)}
		doc, err := client.FetchDocument(context.Background(), "https://example.com")
		assert.Error(t, err)
		assert.Nil(t, doc)
		assert.True(t, IsNonRetryableError(err))
		mockClient.AssertNumberOfCalls(t, "Do", 1)
	})

	t.Run("legacy charset is decoded", func(t *testing.T) {
		// ISO-8859-1 でエンコードされた "café" を含むページ
		body := append([]byte("<html><body><p>caf"), 0xE9)
		body = append(body, []byte("</p></body></html>")...)

		mockClient := new(MockHTTPClient)
		mockClient.On("Do", mock.Anything).Return(&http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/html; charset=iso-8859-1"}},
			Body:       io.NopCloser(bytes.NewReader(body)),
		}, nil)

		client := &Client{httpClient: mockClient, retryConfig: fastRetryConfig(0)}
		doc, err := client.FetchDocument(context.Background(), "https://example.com")
		assert.NoError(t, err)
		assert.Equal(t, "café", doc.Find("p").Text())
	})
}

func TestIsNonRetryableError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.False(t, IsNonRetryableError(nil))
	})
	t.Run("non-retryable error", func(t *testing.T) {
		err := &NonRetryableHTTPError{}
		assert.True(t, IsNonRetryableError(err))
	})
	t.Run("wrapped non-retryable error", func(t *testing.T) {
		err := &NonRetryableHTTPError{StatusCode: 404}
		assert.True(t, IsNonRetryableError(errors.Join(errors.New("outer"), err)))
	})
	t.Run("other error type", func(t *testing.T) {
		assert.False(t, IsNonRetryableError(errors.New("some error")))
	})
}
