package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandLookup は1回だけ検索して結果を出力するモードを示す。
	CommandLookup Command = "lookup"
	// CommandConsole は対話的な検索コンソールモードで起動することを示す。
	CommandConsole Command = "console"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "lookup":
		return CommandLookup
	case "console":
		return CommandConsole
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
