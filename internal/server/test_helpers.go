package server

// MakeTestSignature signs payload the way GitHub does.
// Shared by the package tests and the integration tests.
func MakeTestSignature(payload []byte, secret string) string {
	return SignPayload(payload, secret)
}

func makeTestSignature(payload []byte, secret string) string {
	return MakeTestSignature(payload, secret)
}
