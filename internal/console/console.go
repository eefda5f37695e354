// Package console はクエリコントローラを対話的に利用するコンソールを提供する。
// 1行の入力を1回の「検索トリガー」イベントとして扱い、
// 空行の入力は状態のクリアとして扱う。
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hitoshi/ghlookup/internal/search"
)

// TextSanitizer はプロフィール項目からHTMLを除去するインターフェース。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// Console はクエリコントローラの対話的なコンシューマ。
// 表示層としてコントローラのスナップショットのみを観測する。
type Console struct {
	controller *search.Controller
	sanitizer  TextSanitizer
	in         io.Reader
	out        io.Writer

	// results はコントローラから通知された終端状態（success/failed）を受け取る。
	results chan search.Snapshot
}

// New はConsoleの新しいインスタンスを生成する。
// controllerのOnChangeを自身の通知チャネルに接続する。
func New(controller *search.Controller, sanitizer TextSanitizer, in io.Reader, out io.Writer) *Console {
	c := &Console{
		controller: controller,
		sanitizer:  sanitizer,
		in:         in,
		out:        out,
		results:    make(chan search.Snapshot, 1),
	}

	controller.OnChange(func(snap search.Snapshot) {
		// 終端状態のみを表示対象とする（loading/idleへの遷移は表示しない）
		if snap.InFlight || (snap.State != search.StateSuccess && snap.State != search.StateFailed) {
			return
		}
		select {
		case c.results <- snap:
		default:
		}
	})

	return c
}

// Run は入力ストリームを1行ずつ読み、検索を実行して結果を表示する。
// "exit"または"quit"の入力、入力ストリームの終端、ctxのキャンセルで終了する。
// 終了時にはコントローラを破棄する。
func (c *Console) Run(ctx context.Context) error {
	defer c.controller.Close()

	fmt.Fprintln(c.out, "GitHubユーザー名を入力してください（空行でクリア、exitで終了）")

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		trimmed := strings.TrimSpace(line)
		if trimmed == "exit" || trimmed == "quit" {
			break
		}

		c.controller.SetQueryText(line)
		if trimmed == "" {
			fmt.Fprintln(c.out, "クリアしました。")
			continue
		}

		c.controller.Search()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-c.results:
			c.render(snap)
		}
	}

	return scanner.Err()
}

// render は終端状態のスナップショットを表示する。
func (c *Console) render(snap search.Snapshot) {
	if snap.State == search.StateFailed && snap.Err != nil {
		fmt.Fprintf(c.out, "エラー: %s（%s）\n", snap.Err.Message, snap.Err.Action)
		return
	}

	profile := snap.Profile
	if profile == nil {
		return
	}

	name := profile.Login
	if profile.Name != nil {
		name = fmt.Sprintf("%s (%s)", c.sanitizer.SanitizeText(*profile.Name), profile.Login)
	}

	fmt.Fprintf(c.out, "%s\n", name)
	if profile.Bio != nil {
		fmt.Fprintf(c.out, "  %s\n", c.sanitizer.SanitizeText(*profile.Bio))
	}
	fmt.Fprintf(c.out, "  リポジトリ: %d / フォロワー: %d / フォロー中: %d\n",
		profile.PublicRepos, profile.Followers, profile.Following)
	fmt.Fprintf(c.out, "  %s\n", profile.HTMLURL)
}
