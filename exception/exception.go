package exception

import (
	"runtime/debug"

	"github.com/mezonai/accounting/logx"
	"github.com/mezonai/accounting/monitoring"
)

// SafeGo runs fn on a new goroutine and turns a panic into a logged error.
func SafeGo(name string, fn func()) {
	go Run(name, fn)
}

// Run calls fn on the current goroutine with the same recovery as SafeGo.
// It reports whether fn returned normally.
func Run(name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.IncreasePanicCount()
			logx.Error("PANIC", "Panic in ", name, ": ", r, "\n", string(debug.Stack()))
			ok = false
		}
	}()
	fn()
	return true
}
