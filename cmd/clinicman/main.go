// Command clinicman はクリニック管理APIのサーバー・ワーカー・運用コマンドを提供する。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/clinicman/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "clinicman: %v\n", err)
		os.Exit(1)
	}
}
