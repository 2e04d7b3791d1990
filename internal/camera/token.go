package camera

import (
	"fmt"
	"os"
	"strings"
)

// TokenSource supplies the bearer token for stream requests. It is consulted on
// every connect so a rotated token is picked up by the next reconnect.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a fixed token.
type StaticToken string

// Token returns the fixed token.
func (t StaticToken) Token() (string, error) {
	return string(t), nil
}

// FileToken reads the token from a file written by the login flow.
type FileToken struct {
	Path string
}

// Token returns the trimmed file contents.
func (f FileToken) Token() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// NewTokenSource prefers a token file over a literal token.
func NewTokenSource(token, tokenFile string) TokenSource {
	if tokenFile != "" {
		return FileToken{Path: tokenFile}
	}
	return StaticToken(token)
}
