// Package search はユーザー検索のクエリコントローラを提供する。
// クエリ文字列と検索状態を所有し、常に最大1つの検索だけを
// 正準（canonical）な実行として扱う。追い越された検索はキャンセルされ、
// その完了結果は遅れて届いても状態へ反映されない。
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/ghlookup/internal/model"
)

// State はコントローラの状態を表す。
type State string

const (
	// StateIdle はクエリ文字列が空で、表示すべき結果もない状態を示す。
	StateIdle State = "idle"
	// StateLoading は現在のクエリ文字列に対する検索が実行中であることを示す。
	StateLoading State = "loading"
	// StateSuccess は直近に完了した検索が成功したことを示す。
	StateSuccess State = "success"
	// StateFailed は直近に完了した検索が失敗したことを示す。
	StateFailed State = "failed"
)

// LookupService はコントローラが必要とする検索クライアントのインターフェース。
type LookupService interface {
	// LookupUser は指定されたログイン名のユーザープロフィールを取得する。
	LookupUser(ctx context.Context, login string) (*model.UserProfile, error)
}

// Snapshot はコントローラの公開状態のイミュータブルなコピー。
// 表示層はこのスナップショットのみを観測する。
type Snapshot struct {
	State     State
	QueryText string
	Profile   *model.UserProfile
	Err       *model.LookupError
	InFlight  bool
}

// Controller はユーザー検索の状態機械。
// 全フィールドはmuで直列化され、複数goroutineから安全に操作できる。
//
// 不変条件:
//   - ProfileとErrが同時に非nilになることはない
//   - 正準な検索は常に最大1つで、世代番号の一致した完了だけが状態を更新できる
type Controller struct {
	mu       sync.Mutex
	service  LookupService
	logger   *slog.Logger
	onChange func(Snapshot)

	queryText string
	state     State
	profile   *model.UserProfile
	lastErr   *model.LookupError
	inFlight  bool

	// generation は検索の世代番号。Search/キャンセルのたびに加算され、
	// 「自分はまだ正準な検索か」の判定に使用する。
	generation uint64
	cancel     context.CancelFunc
	closed     bool
}

// NewController はControllerの新しいインスタンスを生成する。
func NewController(service LookupService, logger *slog.Logger) *Controller {
	return &Controller{
		service: service,
		logger:  logger,
		state:   StateIdle,
	}
}

// OnChange は状態遷移のたびに呼ばれる通知コールバックを設定する。
// コールバックはロックの外で、遷移後のスナップショットを引数に呼び出される。
// 検索開始前に設定すること（実行中の差し替えは想定しない）。
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// SetQueryText は現在のクエリ文字列を更新する。
// トリム後が空文字列の場合は実行中の検索をキャンセルし、
// 結果とエラーをクリアしてidleに遷移する。検索の開始は行わない
// （検索は明示的なSearch呼び出しでのみ開始される）。
func (c *Controller) SetQueryText(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.queryText = text
	if strings.TrimSpace(text) == "" {
		c.resetLocked()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Search は現在のクエリ文字列で検索を開始する。
// トリム後が空の場合は何もしない（状態はSetQueryTextで既にクリア済み）。
// 実行中の検索がある場合は先にキャンセルし、その遅延完了が
// 状態を書き換えることがないようにしてから新しい検索を開始する。
func (c *Controller) Search() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	login := strings.TrimSpace(c.queryText)
	if login == "" {
		c.mu.Unlock()
		return
	}

	// 先行する検索を追い越す: キャンセルと世代の更新
	c.cancelInFlightLocked()
	c.generation++
	gen := c.generation

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.inFlight = true
	c.state = StateLoading
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)

	go c.run(ctx, gen, login)
}

// run は1回分の検索を実行し、自身がまだ正準な検索である場合のみ結果を確定する。
func (c *Controller) run(ctx context.Context, gen uint64, login string) {
	profile, err := c.service.LookupUser(ctx, login)

	c.mu.Lock()
	// 世代が進んでいれば自分は追い越されている。結果は破棄する。
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}

	c.cancel = nil
	c.inFlight = false

	if err != nil {
		// キャンセルによる完了は状態を変えない（世代チェックで通常は到達しない）
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			c.mu.Unlock()
			return
		}

		var lerr *model.LookupError
		if !errors.As(err, &lerr) {
			lerr = model.NewUnexpectedResponseError()
		}
		c.profile = nil
		c.lastErr = lerr
		c.state = StateFailed
		snap := c.snapshotLocked()
		c.mu.Unlock()

		if c.logger != nil {
			c.logger.Info("検索が失敗しました",
				slog.String("login", login),
				slog.String("code", lerr.Code),
			)
		}
		c.notify(snap)
		return
	}

	c.profile = profile
	c.lastErr = nil
	c.state = StateSuccess
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("検索が成功しました",
			slog.String("login", login),
			slog.Int64("user_id", profile.ID),
		)
	}
	c.notify(snap)
}

// Clear は実行中の検索をキャンセルし、クエリ文字列・結果・エラーを
// すべてクリアしてidleに遷移する。
func (c *Controller) Clear() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.queryText = ""
	c.resetLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Close はコントローラを破棄する。実行中の検索をキャンセルし、
// 以降の操作と遅延完了が状態に触れないようにする。
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cancelInFlightLocked()
	c.generation++
	c.closed = true
	c.mu.Unlock()
}

// Snapshot は現在の公開状態のコピーを返す。
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// resetLocked は実行中の検索をキャンセルし、結果とエラーをクリアしてidleに戻す。
// muを保持した状態で呼ぶこと。
func (c *Controller) resetLocked() {
	c.cancelInFlightLocked()
	c.generation++
	c.profile = nil
	c.lastErr = nil
	c.inFlight = false
	c.state = StateIdle
}

// cancelInFlightLocked は実行中の検索があればキャンセルする。
// muを保持した状態で呼ぶこと。
func (c *Controller) cancelInFlightLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// snapshotLocked は現在の状態のコピーを生成する。
// muを保持した状態で呼ぶこと。
func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:     c.state,
		QueryText: c.queryText,
		Profile:   c.profile,
		Err:       c.lastErr,
		InFlight:  c.inFlight,
	}
}

// notify は設定されていれば状態変更コールバックを呼び出す。
func (c *Controller) notify(snap Snapshot) {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
