package webdriver

import (
	"fmt"

	"github.com/golang/glog"
)

var debugFlag = false

// SetDebug turns on tracing of every WebDriver request and reply. Tracing is
// also enabled when glog verbosity is at least 2.
func SetDebug(debug bool) {
	debugFlag = debug
}

func debugEnabled() bool {
	return debugFlag || bool(glog.V(2))
}

func debugLog(format string, args ...interface{}) {
	if !debugEnabled() {
		return
	}
	glog.InfoDepth(1, fmt.Sprintf(format, args...))
}
