// Package encoding serializes definitions, statements and check reports for
// the admin API. JSON is the default; msgpack is served on request.
//
// Thread Safety: every function here is safe for concurrent use.
//
// Type Preservation: when decoding into interface{}, msgpack strings decode as
// Go strings (not []byte), so decoded statement args compare equal to the
// values that were bound.
package encoding

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)

// encoderPoolEntry provides pooled msgpack encoders for reduced allocations.
type encoderPoolEntry struct {
	buf *bytes.Buffer
	enc *msgpack.Encoder
}

var encoderPool = sync.Pool{
	New: func() interface{} {
		buf := new(bytes.Buffer)
		enc := msgpack.NewEncoder(buf)
		enc.SetOmitEmpty(true)
		return &encoderPoolEntry{buf: buf, enc: enc}
	},
}

// Marshal encodes a value to msgpack using a pooled encoder.
func Marshal(v interface{}) ([]byte, error) {
	entry := encoderPool.Get().(*encoderPoolEntry)
	entry.buf.Reset()

	if err := entry.enc.Encode(v); err != nil {
		encoderPool.Put(entry)
		return nil, err
	}

	// Copy result before returning to pool
	result := make([]byte, entry.buf.Len())
	copy(result, entry.buf.Bytes())
	encoderPool.Put(entry)

	return result, nil
}

// Unmarshal decodes msgpack data using loose interface decoding.
func Unmarshal(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	return dec.Decode(v)
}

// Negotiate picks the response content type for an Accept header.
func Negotiate(accept string) string {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mediaType {
		case ContentTypeMsgpack, "application/x-msgpack":
			return ContentTypeMsgpack
		case ContentTypeJSON:
			return ContentTypeJSON
		}
	}
	return ContentTypeJSON
}

// MarshalAs encodes v in the given content type, falling back to JSON.
func MarshalAs(contentType string, v interface{}) ([]byte, error) {
	if contentType == ContentTypeMsgpack {
		return Marshal(v)
	}
	return json.Marshal(v)
}

// UnmarshalAs decodes a request body of the given content type.
func UnmarshalAs(contentType string, data []byte, v interface{}) error {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == ContentTypeMsgpack || mediaType == "application/x-msgpack" {
		return Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}
