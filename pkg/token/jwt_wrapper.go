package token

import "legal_marketplace_service/pkg/config"

// These variables can be swapped in tests.
var (
	GenerateJWTFunc = GenerateJWT
	ParseJWTFunc    = ParseJWT
)

// GenerateJWTWrapper lets use case tests mock token generation.
func GenerateJWTWrapper(memberID, role string) (string, error) {
	return GenerateJWTFunc(memberID, role, config.EnvConfig.ChatService)
}

// ParseJWTWrapper lets use case tests mock token parsing.
func ParseJWTWrapper(t string) (*Claims, error) {
	return ParseJWTFunc(t)
}
