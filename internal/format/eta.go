package format

import (
	"fmt"
	"time"
)

// FormatETA renders a best-effort time-remaining estimate in compact form:
// "3s", "2m05s", "1h12m". Estimates below one second render as "<1s" and
// non-positive or absurdly large estimates as "--", since they only occur
// transiently while the rate estimator warms up.
func FormatETA(eta time.Duration) string {
	switch {
	case eta <= 0 || eta > 30*24*time.Hour:
		return "--"
	case eta < time.Second:
		return "<1s"
	case eta < time.Minute:
		return fmt.Sprintf("%ds", int(eta.Round(time.Second).Seconds()))
	case eta < time.Hour:
		eta = eta.Round(time.Second)
		return fmt.Sprintf("%dm%02ds", int(eta.Minutes()), int(eta.Seconds())%60)
	default:
		eta = eta.Round(time.Minute)
		return fmt.Sprintf("%dh%02dm", int(eta.Hours()), int(eta.Minutes())%60)
	}
}
