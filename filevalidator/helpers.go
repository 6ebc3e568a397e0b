package filevalidator

import (
	"fmt"
	"math"
)

// FormatSizeReadable converts a size in bytes to a human-readable string
func FormatSizeReadable(size int64) string {
	switch {
	case size < KB:
		return fmt.Sprintf("%d B", size)
	case size < MB:
		return formatUnit(size, KB, "KB")
	case size < GB:
		return formatUnit(size, MB, "MB")
	default:
		return formatUnit(size, GB, "GB")
	}
}

func formatUnit(size, unit int64, suffix string) string {
	// Round to 1 decimal place
	rounded := math.Round(float64(size)/float64(unit)*10) / 10
	if rounded == math.Trunc(rounded) {
		return fmt.Sprintf("%.0f %s", rounded, suffix)
	}
	return fmt.Sprintf("%.1f %s", rounded, suffix)
}
