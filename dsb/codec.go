package dsb

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Encode gzips payload and returns it as padded standard base64.
func Encode(payload []byte) (string, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return "", fmt.Errorf("gzip payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode. Characters outside the base64 alphabet (line breaks,
// escaped slashes) are skipped and padding is optional.
func Decode(data string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/':
			return r
		}
		return -1
	}, data)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrProtocol)
	}
	raw, err := base64.RawStdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrProtocol, err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrProtocol, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrProtocol, err)
	}
	return out, nil
}
