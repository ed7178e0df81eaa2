package common

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignaturePrefix is the scheme prefix accepted and emitted on signatures.
const SignaturePrefix = "hmac-sha256="

// ComputeSignature returns the hex HMAC-SHA256 of timestamp bytes followed
// by body bytes, keyed by secret. The same scheme authenticates inbound
// requests and signs outbound callbacks.
func ComputeSignature(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a presented signature against the expected value
// in constant time. The optional "hmac-sha256=" prefix is stripped first.
func VerifySignature(secret, timestamp string, body []byte, presented string) bool {
	presented = strings.TrimPrefix(presented, SignaturePrefix)
	expected := ComputeSignature(secret, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(presented))
}
