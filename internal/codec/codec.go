// Package codec abstracts the wire encoding used by the RPC transport.
// JSON is the default; CBOR is available for deployments that prefer a
// binary framing.
package codec

import (
	"encoding/json"
	"io"

	"github.com/fxamacker/cbor/v2"
)

type Encoder interface {
	Encode(v any) error
}

type Decoder interface {
	Decode(v any) error
}

type Marshaler interface {
	Marshal(v any) ([]byte, error)
	NewEncoder(w io.Writer) Encoder
}

type Unmarshaler interface {
	Unmarshal(data []byte, dst any) error
	NewDecoder(r io.Reader) Decoder
}

// Codec is both halves of a wire encoding.
type Codec interface {
	Marshaler
	Unmarshaler
	// Binary reports whether frames must be sent as binary messages.
	Binary() bool
}

// JSON is the text codec.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (JSON) Unmarshal(data []byte, dst any) error { return json.Unmarshal(data, dst) }
func (JSON) NewEncoder(w io.Writer) Encoder { return json.NewEncoder(w) }
func (JSON) NewDecoder(r io.Reader) Decoder { return json.NewDecoder(r) }
func (JSON) Binary() bool { return false }

// CBOR is the binary codec.
type CBOR struct{}

func (CBOR) Marshal(v any) ([]byte, error) { return cbor.Marshal(v) }
func (CBOR) Unmarshal(data []byte, dst any) error { return cbor.Unmarshal(data, dst) }
func (CBOR) NewEncoder(w io.Writer) Encoder { return cbor.NewEncoder(w) }
func (CBOR) NewDecoder(r io.Reader) Decoder { return cbor.NewDecoder(r) }
func (CBOR) Binary() bool { return true }
