package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrBadPayload = errors.New("capture: malformed image payload")

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	jpegMagic = []byte{0xff, 0xd8, 0xff}
)

// DecodeDataURI splits a data URI into its raw bytes and media type.
// Only base64-encoded payloads are accepted.
func DecodeDataURI(uri string) (data []byte, mediaType string, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", ErrBadPayload
	}
	meta, b64, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", ErrBadPayload
	}
	mediaType, enc, ok := strings.Cut(meta, ";")
	if !ok || enc != "base64" {
		return nil, "", fmt.Errorf("%w: not base64", ErrBadPayload)
	}
	data, err = base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return data, mediaType, nil
}

// SniffImage identifies the payload format from its magic bytes. The bytes,
// not the declared media type, are the source of truth. Returns "png",
// "jpeg" or "".
func SniffImage(data []byte) string {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return "png"
	case bytes.HasPrefix(data, jpegMagic):
		return "jpeg"
	}
	return ""
}
