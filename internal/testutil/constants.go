package testutil

// Fixed identifiers for tests.
const (
	TestModel  = "qwen3:4b"
	TestAPIKey = "test-api-key-0123456789"
)
