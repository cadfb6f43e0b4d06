package utils

func U64ToBytes(u uint64) []byte {
	return []byte{
		byte(u >> 56), byte(u >> 48), byte(u >> 40), byte(u >> 32),
		byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u),
	}
}

// FingerprintQuery identifies a rendered query string for statement caching.
func FingerprintQuery(driver, query string) uint64 {
	return Mix64(U64(driver), U64(query))
}
