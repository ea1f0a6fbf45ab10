package main

import (
	"github.com/shouni/go-podcast-dig/cmd"
)

// main 関数は、CLIのエントリポイントです。
// フラグ解釈やエラー時の os.Exit(1) は cmd.Execute (clibase) 側で一元的に処理されます。
func main() {
	cmd.Execute()
}
