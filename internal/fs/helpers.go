package fs

import (
	"strings"
	"time"
)

const noteSuffix = ".md"

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// noteCandidate returns the stored title a name would have as a note, and
// whether name is even eligible to be one (i.e. ends in the fixed suffix).
func noteCandidate(name string) (title string, ok bool) {
	if !strings.HasSuffix(name, noteSuffix) {
		return "", false
	}
	return strings.TrimSuffix(name, noteSuffix), true
}

func noteExposedName(title string) string {
	return title + noteSuffix
}
