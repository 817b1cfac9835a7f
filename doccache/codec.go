package doccache

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Payload header bytes.
const (
	headerJSON byte = 'j'
	headerZstd byte = 'z'
)

// DefaultCompressAbove is the encoded size above which payloads are compressed.
const DefaultCompressAbove = 4 << 10

// maxDecodedSize bounds decompression of untrusted payloads.
const maxDecodedSize = 64 << 20

// Codec encodes cache payloads as JSON, compressing large ones with zstd.
// Every payload starts with a one-byte header naming its encoding, so the
// threshold can change without invalidating existing entries.
//
// A Codec is safe for concurrent use.
type Codec struct {
	compressAbove int
	enc           *zstd.Encoder
	dec           *zstd.Decoder
}

// NewCodec creates a codec that compresses payloads larger than
// compressAbove bytes. A negative value disables compression.
func NewCodec(compressAbove int) (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("doccache: create encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		return nil, fmt.Errorf("doccache: create decoder: %w", err)
	}
	return &Codec{compressAbove: compressAbove, enc: enc, dec: dec}, nil
}

// Marshal encodes v.
func (c *Codec) Marshal(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("doccache: encode payload: %w", err)
	}
	if c.compressAbove < 0 || len(body) <= c.compressAbove {
		return append([]byte{headerJSON}, body...), nil
	}
	out := make([]byte, 1, len(body)/2)
	out[0] = headerZstd
	return c.enc.EncodeAll(body, out), nil
}

// Unmarshal decodes data into v. Malformed input yields an error matching
// ErrCorruptPayload.
func (c *Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty", ErrCorruptPayload)
	}
	body := data[1:]
	switch data[0] {
	case headerJSON:
	case headerZstd:
		var err error
		body, err = c.dec.DecodeAll(body, nil)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptPayload, err)
		}
	default:
		return fmt.Errorf("%w: unknown header %#x", ErrCorruptPayload, data[0])
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}
	return nil
}
