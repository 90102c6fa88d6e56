package models

// Usage is the local storage report shown to the user.
type Usage struct {
	Items int
	Bytes int64
	// QuotaBytes is the configured soft quota; 0 means unlimited.
	QuotaBytes int64
}

// Percent returns Bytes as a share of QuotaBytes, or 0 without a quota.
func (u Usage) Percent() float64 {
	if u.QuotaBytes <= 0 {
		return 0
	}
	return float64(u.Bytes) * 100 / float64(u.QuotaBytes)
}
