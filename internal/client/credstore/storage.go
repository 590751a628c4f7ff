package credstore

// Storage is a small key-value port over whatever persistence the host
// environment offers. Implementations must tolerate missing keys; a
// failing backend reads as empty rather than erroring the caller.
type Storage interface {
	// Get returns the value for key, and whether it was present.
	Get(key string) (string, bool)

	// Set stores value under key, overwriting any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}
