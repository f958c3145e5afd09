package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/tinylib/msgp/msgp"
)

// Codec turns messages into frames and back. Every codec can also reproduce
// a frame as JSON so inbound messages share one validation path.
type Codec interface {
	Name() string
	// Binary reports whether frames should be sent as binary websocket messages
	Binary() bool
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	ToJSON(data []byte) ([]byte, error)
}

// Pool of buffers to avoid allocation and ensure thread safety
var bufferPool = sync.Pool{
	New: func() any {
		return &bytes.Buffer{}
	},
}

// CodecFor returns the codec for a ?format= query value. Empty means JSON.
func CodecFor(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return JSON{}, nil
	case "msgpack", "msgp":
		return Msgpack{}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// JSON is the default text codec
type JSON struct{}

func (JSON) Name() string { return "json" }
func (JSON) Binary() bool { return false }

func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (JSON) ToJSON(data []byte) ([]byte, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidMessage)
	}
	return data, nil
}

// Msgpack encodes the same documents as JSON in msgpack form. Messages are
// shaped by their JSON tags, so both formats carry identical field names.
type Msgpack struct{}

func (Msgpack) Name() string { return "msgpack" }
func (Msgpack) Binary() bool { return true }

// Marshal serializes a message to msgpack format
func (Msgpack) Marshal(v any) ([]byte, error) {
	doc, err := toDocument(v)
	if err != nil {
		return nil, err
	}

	// Get a buffer from the pool to ensure thread safety
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	writer := msgp.NewWriter(buf)
	if err := writer.WriteIntf(doc); err != nil {
		return nil, err
	}
	if err := writer.Flush(); err != nil {
		return nil, err
	}

	// Create a copy to avoid aliasing the pooled buffer
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// Unmarshal deserializes msgpack data into a message
func (m Msgpack) Unmarshal(data []byte, v any) error {
	js, err := m.ToJSON(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(js, v)
}

func (Msgpack) ToJSON(data []byte) ([]byte, error) {
	doc, rest, err := msgp.ReadIntfBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidMessage, len(rest))
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return js, nil
}

// toDocument renders v through its JSON form into plain maps, slices and
// scalars. Whole numbers become int64 so they travel as msgpack integers.
func toDocument(v any) (any, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	dec := json.NewDecoder(buf)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return normalize(doc), nil
}

func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, err := val.Float64()
		if err != nil || math.IsInf(f, 0) {
			return val.String()
		}
		return f
	default:
		return val
	}
}
