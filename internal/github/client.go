// Package github はGitHub REST APIのユーザー検索クライアントを提供する。
// 単一ユーザーのプロフィール取得と、ステータス・ペイロード形状から
// 閉じたエラー分類への写像を含む。
package github

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/ghlookup/internal/metrics"
	"github.com/hitoshi/ghlookup/internal/model"
)

const (
	// defaultBaseURL はGitHub REST APIの基底URL。
	defaultBaseURL = "https://api.github.com"
	// apiVersion はリクエストヘッダで指定するGitHub APIバージョン。
	apiVersion = "2022-11-28"
)

// Client はGitHub APIのユーザー検索クライアント。
// GET /users/{login} を1回実行し、結果をUserProfileまたはLookupErrorに写像する。
// リトライは行わず、タイムアウトは渡されたHTTPクライアントの設定に従う。
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	collector   metrics.MetricsCollector
	baseURL     string // テスト用にエンドポイントを差し替え可能
	maxBodySize int64
}

// NewClient はClientの新しいインスタンスを生成する。
// collectorはnil可（メトリクス収集なしで動作する）。
// maxBodySizeが0以下の場合はデフォルト値1MiBを使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector, maxBodySize int64) *Client {
	if maxBodySize <= 0 {
		maxBodySize = 1 << 20
	}
	return &Client{
		httpClient:  httpClient,
		logger:      logger,
		collector:   collector,
		baseURL:     defaultBaseURL,
		maxBodySize: maxBodySize,
	}
}

// SetBaseURL はGitHub APIの基底URLを差し替える。
// テストおよびGITHUB_API_BASE_URL設定時に使用する。
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

// userProfileWire はGitHub APIレスポンスのデコード用中間表現。
// 必須フィールドの欠落を検出するため、全フィールドをポインタで受ける。
type userProfileWire struct {
	ID          *int64  `json:"id"`
	Login       *string `json:"login"`
	AvatarURL   *string `json:"avatar_url"`
	HTMLURL     *string `json:"html_url"`
	Name        *string `json:"name"`
	Bio         *string `json:"bio"`
	PublicRepos *int    `json:"public_repos"`
	Followers   *int    `json:"followers"`
	Following   *int    `json:"following"`
}

// LookupUser は指定されたログイン名のユーザープロフィールを取得する。
// 呼び出し側はログイン名のトリムと空チェックに責任を持つ（コントローラの責務）。
//
// エラー分類:
//   - リクエストを生成できない場合は MALFORMED_REQUEST
//   - 通信失敗および200/404以外のステータスは UNEXPECTED_RESPONSE
//   - 404は USER_NOT_FOUND
//   - 200でボディが0バイトの場合は EMPTY_RESPONSE（デコードは試みない）
//   - 必須フィールド欠落・型不一致は DECODE_FAILED
//
// ctxがキャンセルされた場合はコンテキストエラーをそのまま返し、
// エラー分類への写像は行わない（結果の破棄は呼び出し側の世代チェックで行う）。
func (c *Client) LookupUser(ctx context.Context, login string) (*model.UserProfile, error) {
	start := time.Now()

	reqURL := c.baseURL + "/users/" + url.PathEscape(login)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.logger.Error("リクエストの生成に失敗しました",
			slog.String("login", login),
			slog.String("error", err.Error()),
		)
		return nil, c.fail(model.NewMalformedRequestError())
	}
	req.Header.Set("User-Agent", "ghlookup/1.0")
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// キャンセルは分類せず、そのまま呼び出し側に返す
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("GitHub APIの呼び出しに失敗しました",
			slog.String("login", login),
			slog.String("error", err.Error()),
		)
		return nil, c.fail(model.NewUnexpectedResponseError())
	}
	defer resp.Body.Close()

	if c.collector != nil {
		c.collector.RecordHTTPStatus(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.logger.Info("ユーザーが見つかりません",
			slog.String("login", login),
		)
		return nil, c.fail(model.NewUserNotFoundError())
	case resp.StatusCode != http.StatusOK:
		c.logger.Error("GitHub APIがエラーステータスを返しました",
			slog.String("login", login),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, c.fail(model.NewUnexpectedResponseError())
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("login", login),
			slog.String("error", err.Error()),
		)
		return nil, c.fail(model.NewUnexpectedResponseError())
	}

	if len(body) == 0 {
		c.logger.Error("GitHub APIが空のレスポンスを返しました",
			slog.String("login", login),
		)
		return nil, c.fail(model.NewEmptyResponseError())
	}

	profile, decodeErr := decodeUserProfile(body)
	if decodeErr != nil {
		c.logger.Error("GitHub APIレスポンスのデコードに失敗しました",
			slog.String("login", login),
			slog.String("error", decodeErr.Error()),
		)
		return nil, c.fail(model.NewDecodeFailedError())
	}

	// 結果を確定する前のキャンセルチェック
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if c.collector != nil {
		c.collector.RecordLookupSuccess()
		c.collector.RecordLookupLatency(time.Since(start))
	}

	return profile, nil
}

// decodeUserProfile はレスポンスボディをUserProfileにデコードする。
// トップレベルがオブジェクトでない場合、必須フィールドが欠落している場合、
// フィールドの型が一致しない場合はエラーを返す。
func decodeUserProfile(body []byte) (*model.UserProfile, error) {
	var wire userProfileWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}

	// 必須フィールドの欠落チェック（nameとbioはnull許容）
	if wire.ID == nil {
		return nil, &missingFieldError{field: "id"}
	}
	if wire.Login == nil {
		return nil, &missingFieldError{field: "login"}
	}
	if wire.AvatarURL == nil {
		return nil, &missingFieldError{field: "avatar_url"}
	}
	if wire.HTMLURL == nil {
		return nil, &missingFieldError{field: "html_url"}
	}
	if wire.PublicRepos == nil {
		return nil, &missingFieldError{field: "public_repos"}
	}
	if wire.Followers == nil {
		return nil, &missingFieldError{field: "followers"}
	}
	if wire.Following == nil {
		return nil, &missingFieldError{field: "following"}
	}

	return &model.UserProfile{
		ID:          *wire.ID,
		Login:       *wire.Login,
		AvatarURL:   *wire.AvatarURL,
		HTMLURL:     *wire.HTMLURL,
		Name:        wire.Name,
		Bio:         wire.Bio,
		PublicRepos: *wire.PublicRepos,
		Followers:   *wire.Followers,
		Following:   *wire.Following,
	}, nil
}

// missingFieldError は必須フィールドの欠落を表す内部エラー。
// 分類としてはDECODE_FAILEDに写像され、ログにのみ詳細が残る。
type missingFieldError struct {
	field string
}

func (e *missingFieldError) Error() string {
	return "missing required field: " + e.field
}

// fail は失敗メトリクスを記録してLookupErrorを返す。
func (c *Client) fail(lerr *model.LookupError) *model.LookupError {
	if c.collector != nil {
		c.collector.RecordLookupFailure(lerr.Code)
	}
	return lerr
}
