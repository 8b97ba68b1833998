package config

// RegisteredKeyCount returns the number of keys in the registry.
func RegisteredKeyCount() int {
	return len(configKeys)
}
