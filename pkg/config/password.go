package config

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// PassLen is the fixed length, in ASCII characters, of a session password
// (spec §3).
const PassLen = 32

// ErrInvalidPassword is returned by ParseSidePassword when the input is not
// of the form "<fingerprint>-<password>" with a PassLen-character password.
var ErrInvalidPassword = fmt.Errorf("invalid password")

// passwordAlphabet is the character set a session password is drawn from.
//
// The original Rust program drew from the full printable-ASCII range via
// rand::Rng::gen_ascii_chars; this rewrite narrows it to alphanumerics so the
// password stays easy to read aloud over the out-of-band voice channel
// spec.md §1 assumes. See SPEC_FULL.md's Open Question note.
const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSessionPassword returns a cryptographically random PassLen-character
// ASCII password (spec §3, §4.5 step 3).
func GenerateSessionPassword() (string, error) {
	var sb strings.Builder
	sb.Grow(PassLen)

	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := 0; i < PassLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate session password: %w", err)
		}
		sb.WriteByte(passwordAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// FormatSidePassword renders the out-of-band side-channel string the server
// prints and the client is expected to be told, e.g. over voice (spec §6).
func FormatSidePassword(fingerprint, password string) string {
	return fingerprint + "-" + password
}

// ParseSidePassword splits the client's "Session password: " prompt input
// into fingerprint and password halves (spec §4.4 step 2, §6). The
// delimiter is the FIRST '-'; further '-' characters belong to the password.
func ParseSidePassword(input string) (fingerprint, password string, err error) {
	input = strings.TrimSpace(input)

	idx := strings.IndexByte(input, '-')
	if idx < 0 {
		return "", "", ErrInvalidPassword
	}

	fingerprint = input[:idx]
	password = input[idx+1:]
	if fingerprint == "" || len(password) != PassLen {
		return "", "", ErrInvalidPassword
	}

	return fingerprint, password, nil
}
