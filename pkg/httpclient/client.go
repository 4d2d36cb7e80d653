package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout はバックエンド呼び出しの既定タイムアウト。
const DefaultTimeout = 30 * time.Second

// forwardedHeaders はバックエンドへそのまま転送するリクエストヘッダー。
var forwardedHeaders = []string{"Authorization", "Content-Type", "Accept"}

// Client はgatewayからバックエンドサービスへリクエストを転送するHTTPクライアント。
// リトライやキャッシュは行わない。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先サービスのベースURL。
	baseURL string
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先サービスのベースURL（例: "http://quiz-service:5003"）を指定する。
// timeoutが0以下の場合はDefaultTimeoutを使用する。
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL は接続先のベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response はバックエンドから受け取ったレスポンス。ボディは読み切った状態で保持する。
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Forward はmethod・path・クエリ・ボディと転送対象ヘッダーをバックエンドへ送り、
// レスポンスを解釈せずに返す。
// 接続失敗・タイムアウト・ボディ読み取り失敗はエラーとして返す。
func (c *Client) Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body io.Reader) (*Response, error) {
	url := c.baseURL + path
	if rawQuery != "" {
		url += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	for _, name := range forwardedHeaders {
		for _, v := range header.Values(name) {
			req.Header.Add(name, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗: %w", err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}
