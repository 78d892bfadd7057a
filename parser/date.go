package parser

import "time"

// DateLayout is the es-AR short date (DD/MM/YYYY).
const DateLayout = "02/01/2006"

// FormatDate renders t in the run date layout using t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
