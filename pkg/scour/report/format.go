package report

import (
	"fmt"
	"time"
)

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatSize formats n bytes in the largest fitting base-1024 unit up to
// GB. Plain bytes have no decimals, larger units have two.
func FormatSize(n int64) string {
	if n < 0 {
		return "-" + FormatSize(-n)
	}

	size := float64(n)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}

// FormatPercent formats a fraction in [0,1] as a percentage with one
// decimal.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatElapsed formats a run duration.
func FormatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
