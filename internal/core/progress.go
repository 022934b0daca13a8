package core

// completionPercent returns round(100*done/total) using integer arithmetic,
// rounding halves up. ok is false when total is zero.
func completionPercent(done, total int) (rate int, ok bool) {
	if total <= 0 {
		return 0, false
	}
	if done < 0 {
		done = 0
	}
	if done > total {
		done = total
	}
	return (200*done + total) / (2 * total), true
}

// clampRate bounds a completion rate to [0,100].
func clampRate(rate int) int {
	switch {
	case rate < 0:
		return 0
	case rate > 100:
		return 100
	default:
		return rate
	}
}
