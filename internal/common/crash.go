package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// crashDir receives crash reports; set by InstallCrashHandler
var crashDir = "./logs"

// InstallCrashHandler sets where RecoverWithCrashFile writes reports.
// Call it at the top of main and defer RecoverWithCrashFile straight after.
func InstallCrashHandler(dir string) {
	if dir != "" {
		crashDir = dir
	}
	if err := os.MkdirAll(crashDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: cannot create %s: %v\n", crashDir, err)
	}
}

// RecoverWithCrashFile records a panic on the main goroutine and exits non-zero.
// Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	r := recover()
	if r == nil {
		return
	}
	path := WriteCrashFile(r, stack(false))
	if path != "" {
		fmt.Fprintf(os.Stderr, "\nFATAL: %v\nCrash report: %s\n", r, path)
	}
	os.Exit(1)
}

// WriteCrashFile writes a report with the panic value and every goroutine stack.
// It returns the file path, or "" when the report only made it to stderr.
func WriteCrashFile(panicVal interface{}, trace string) string {
	now := time.Now()

	var b strings.Builder
	b.WriteString("larder crash report\n")
	fmt.Fprintf(&b, "time:       %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "version:    %s\n", GetFullVersion())
	fmt.Fprintf(&b, "go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&b, "goroutines: %d\n", runtime.NumGoroutine())
	fmt.Fprintf(&b, "\npanic: %v\n\n%s\n", panicVal, trace)
	fmt.Fprintf(&b, "\nall goroutines:\n%s\n", stack(true))

	path := filepath.Join(crashDir, "crash-"+now.Format("20060102-150405")+".log")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: cannot write report: %v\n%s", err, b.String())
		return ""
	}
	return path
}

// stack returns the current goroutine's trace, or all of them, growing the buffer until it fits
func stack(all bool) string {
	buf := make([]byte, 16*1024)
	for {
		n := runtime.Stack(buf, all)
		if n < len(buf) || len(buf) >= 32*1024*1024 {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}
