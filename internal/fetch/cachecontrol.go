// Copyright (c) 2026 dumtruck
// SPDX-License-Identifier: MIT

package fetch

import (
	"strconv"
	"strings"
	"time"
)

// maxAgeFromCacheControl extracts max-age from a Cache-Control header value,
// honoring RFC 7234 when CachePresetRFC7234 is selected. no-store/no-cache
// are treated as "don't cache" (ok=false).
func maxAgeFromCacheControl(value string) (time.Duration, bool) {
	for _, directive := range strings.Split(value, ",") {
		directive = strings.TrimSpace(directive)
		lower := strings.ToLower(directive)
		if lower == "no-store" || lower == "no-cache" {
			return 0, false
		}
		if strings.HasPrefix(lower, "max-age=") {
			secondsStr := strings.TrimPrefix(lower, "max-age=")
			seconds, err := strconv.Atoi(secondsStr)
			if err != nil || seconds <= 0 {
				return 0, false
			}
			return time.Duration(seconds) * time.Second, true
		}
	}
	return 0, false
}
