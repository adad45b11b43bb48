package utils

func Contains[T comparable](arr []T, item T) bool {
	for _, i := range arr {
		if i == item {
			return true
		}
	}

	return false
}

// Unique returns arr without repeated items, keeping the first occurrence.
func Unique[T comparable](arr []T) []T {
	result := []T{}

	for _, i := range arr {
		if !Contains(result, i) {
			result = append(result, i)
		}
	}

	return result
}
