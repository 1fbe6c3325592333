package utils

// NextEnum steps forward through 0..max, wrapping around
func NextEnum[T ~int](current, max T) T {
	if current >= max {
		return 0
	}
	return current + 1
}

func PrevEnum[T ~int](current, max T) T {
	if current <= 0 {
		return max
	}
	return current - 1
}
