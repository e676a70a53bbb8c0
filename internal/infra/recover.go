package infra

import (
	"fmt"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SafeRun runs f and converts a panic into an error tagged with the job id and panic site.
func SafeRun(id string, f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			site := identifyPanic()
			log.WithField("job", id).WithField("site", site).Errorf("job panics with message: %v", r)
			err = fmt.Errorf("job %q panicked at %s: %v", id, site, r)
		}
	}()
	return f()
}

func identifyPanic() string {
	var pc [16]uintptr
	n := runtime.Callers(4, pc[:])
	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", frame.Function, frame.Line)
		}
		if !more {
			break
		}
	}
	return "unknown"
}
