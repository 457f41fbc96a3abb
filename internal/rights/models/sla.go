package models

import "time"

// ReviewSLA is the legal window for answering a rights request (Art. 12.3:
// one month, extended here to a fixed 30 days).
const ReviewSLA = 30 * 24 * time.Hour

func isSlaExceeded(pending bool, createdAt, now time.Time) bool {
	if !pending {
		return false
	}
	return !now.Before(createdAt.Add(ReviewSLA))
}

func daysUntilSla(pending bool, createdAt, now time.Time) int {
	if !pending {
		return 0
	}
	remaining := createdAt.Add(ReviewSLA).Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) != 0 {
		days++
	}
	return days
}
