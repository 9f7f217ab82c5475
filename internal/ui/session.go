package ui

import (
	"fmt"

	"github.com/desertthunder/reelx/internal/session"
)

// Session renders a guard event as a single trace line.
func Session(e session.Event) string {
	line := e.Kind.String()
	if e.Request.Path != "" {
		line = fmt.Sprintf("%s %s", line, e.Request)
	}
	if e.RequestID != "" {
		line = fmt.Sprintf("%s [%s]", line, e.RequestID[:min(8, len(e.RequestID))])
	}

	switch e.Kind {
	case session.EventRefreshSucceeded:
		return styles.OK(line)
	case session.EventRefreshFailed:
		return styles.Err(fmt.Sprintf("%s: %v", line, e.Err))
	case session.EventReleased:
		if e.Err != nil {
			return styles.Warn(fmt.Sprintf("%s: %v", line, e.Err))
		}
		return styles.Help(line)
	default:
		return styles.Help(line)
	}
}
