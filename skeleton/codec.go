package skeleton

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/tinylib/msgp/msgp"

	"github.com/janelia-flyem/neuprep/neuprep"
)

// Binary layout (MessagePack):
//
//	skeleton:   map{"id": str, "template": str, "nodes": [[id, type, x, y, z, radius, parent], ...]}
//	collection: [skeleton, ...]
const nodeFields = 7

// Marshal encodes a skeleton as MessagePack.
func (s *Skeleton) Marshal() []byte {
	return s.appendMsg(make([]byte, 0, 32+len(s.Nodes)*48))
}

func (s *Skeleton) appendMsg(b []byte) []byte {
	b = msgp.AppendMapHeader(b, 3)
	b = msgp.AppendString(b, "id")
	b = msgp.AppendString(b, string(s.ID))
	b = msgp.AppendString(b, "template")
	b = msgp.AppendString(b, s.Template)
	b = msgp.AppendString(b, "nodes")
	b = msgp.AppendArrayHeader(b, uint32(len(s.Nodes)))
	for _, n := range s.Nodes {
		b = msgp.AppendArrayHeader(b, nodeFields)
		b = msgp.AppendInt64(b, n.ID)
		b = msgp.AppendInt(b, n.Type)
		b = msgp.AppendFloat64(b, n.Pos[0])
		b = msgp.AppendFloat64(b, n.Pos[1])
		b = msgp.AppendFloat64(b, n.Pos[2])
		b = msgp.AppendFloat64(b, n.Radius)
		b = msgp.AppendInt64(b, n.Parent)
	}
	return b
}

// Unmarshal decodes a skeleton written by Marshal.
func Unmarshal(b []byte) (*Skeleton, error) {
	s := new(Skeleton)
	rest, err := s.readMsg(b)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%d trailing bytes after skeleton %s", len(rest), s.ID)
	}
	return s, nil
}

func (s *Skeleton) readMsg(b []byte) ([]byte, error) {
	sz, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < sz; i++ {
		var key string
		if key, b, err = msgp.ReadStringBytes(b); err != nil {
			return nil, err
		}
		switch key {
		case "id":
			var id string
			if id, b, err = msgp.ReadStringBytes(b); err != nil {
				return nil, err
			}
			s.ID = neuprep.Identifier(id)
		case "template":
			if s.Template, b, err = msgp.ReadStringBytes(b); err != nil {
				return nil, err
			}
		case "nodes":
			if b, err = s.readNodes(b); err != nil {
				return nil, err
			}
		default:
			if b, err = msgp.Skip(b); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

func (s *Skeleton) readNodes(b []byte) ([]byte, error) {
	num, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, err
	}
	s.Nodes = make([]Node, num)
	for i := range s.Nodes {
		var fields uint32
		if fields, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
			return nil, err
		}
		if fields != nodeFields {
			return nil, fmt.Errorf("node %d has %d fields, expected %d", i, fields, nodeFields)
		}
		n := &s.Nodes[i]
		if n.ID, b, err = msgp.ReadInt64Bytes(b); err != nil {
			return nil, err
		}
		if n.Type, b, err = msgp.ReadIntBytes(b); err != nil {
			return nil, err
		}
		for d := 0; d < 3; d++ {
			if n.Pos[d], b, err = msgp.ReadFloat64Bytes(b); err != nil {
				return nil, err
			}
		}
		if n.Radius, b, err = msgp.ReadFloat64Bytes(b); err != nil {
			return nil, err
		}
		if n.Parent, b, err = msgp.ReadInt64Bytes(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func initZstd() {
	zstdOnce.Do(func() {
		if zstdEncoder, zstdErr = zstd.NewWriter(nil); zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
}

// Compress returns the zstd-compressed data.
func Compress(data []byte) ([]byte, error) {
	if initZstd(); zstdErr != nil {
		return nil, zstdErr
	}
	return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	if initZstd(); zstdErr != nil {
		return nil, zstdErr
	}
	return zstdDecoder.DecodeAll(data, nil)
}

// Codec encodes skeletons for byte-oriented caches and stores.
type Codec struct{}

func (Codec) Encode(s *Skeleton) ([]byte, error) {
	return s.Marshal(), nil
}

func (Codec) Decode(b []byte) (*Skeleton, error) {
	return Unmarshal(b)
}
