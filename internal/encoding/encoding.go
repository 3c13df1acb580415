// Package encoding frames structured payloads for the remote host. A
// framed payload is a JSON header, a separator line, then the raw
// content. Root posts and tombstones are framed so a reader can tell
// what a post is without consulting the local index.
package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/plume/internal/digest"
)

// Version is the current framing version.
const Version = 1

// separator sits between the JSON header and the content bytes.
var separator = []byte("\n---\n")

// Header describes the content that follows it.
type Header struct {
	Mime       string `json:"mime"`
	Size       int    `json:"size"`
	Hash       string `json:"hash"`
	Compressed bool   `json:"compressed"`
	Version    int    `json:"version"`
}

// InvalidError reports a payload that does not parse as a framed
// payload.
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid encoding: %s", e.Reason)
}

// Encode frames content with a header carrying its mime type, size,
// and digest.
func Encode(content []byte, mime string) ([]byte, error) {
	header := Header{
		Mime:    mime,
		Size:    len(content),
		Hash:    digest.Sum(content),
		Version: Version,
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}

	out := make([]byte, 0, len(headerJSON)+len(separator)+len(content))
	out = append(out, headerJSON...)
	out = append(out, separator...)
	out = append(out, content...)
	return out, nil
}

// Decode splits a framed payload into its header and content. The
// content digest is checked against the header; a mismatch is an
// *InvalidError, never tolerated silently.
func Decode(encoded []byte) (Header, []byte, error) {
	pos := bytes.Index(encoded, separator)
	if pos < 0 {
		return Header{}, nil, &InvalidError{Reason: "missing header separator"}
	}

	var header Header
	if err := json.Unmarshal(encoded[:pos], &header); err != nil {
		return Header{}, nil, &InvalidError{Reason: fmt.Sprintf("bad header: %v", err)}
	}

	content := encoded[pos+len(separator):]
	if !digest.Verify(content, header.Hash) {
		return Header{}, nil, &InvalidError{Reason: "content digest does not match header"}
	}
	return header, content, nil
}

// IsFramed reports whether encoded looks like a framed payload.
func IsFramed(encoded []byte) bool {
	return bytes.Index(encoded, separator) > 0 && encoded[0] == '{'
}
