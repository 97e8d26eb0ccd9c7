package main

import (
	"os"
	"runtime/debug"

	"github.com/mezonai/accounting/cmd"
	"github.com/mezonai/accounting/logx"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			_ = logx.Errorf("ACCOUNTING NODE CRASHED: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	cmd.Execute()
}
