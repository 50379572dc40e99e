package btree

import (
	"github.com/daemonkv/collections/collerrors"
	"github.com/tinylib/msgp/msgp"
)

// Node payloads (spec §6.2) hold everything that isn't a store reference:
//
//	array-header(K), key_0 bytes, key_1 bytes, ..., key_K-1 bytes
//
// The node's values and, for a non-leaf, its children are carried as the
// object's refs rather than in the payload: refs[0:K] are the value
// handles, and for a non-leaf refs[K:] are the K+1 child handles. A node is
// a leaf iff its ref count equals K exactly — no separate flag is needed,
// since a non-leaf always carries K+1 more refs than a leaf with the same
// key count. This mirrors the split the teacher's node_codec.go makes
// between "page bytes" and "child pointers", and uses the same low-level
// msgp append/read helpers original_source/Go/.../linearhash/msgpack uses,
// rather than a struct with a generated Marshaler: the wire layout is fixed
// by spec §6.2, not by whatever a codegen tool would choose.
func encodeNodePayload(keys [][]byte) []byte {
	b := msgp.AppendArrayHeader(nil, uint32(len(keys)))
	for _, k := range keys {
		b = msgp.AppendBytes(b, k)
	}
	return b
}

func decodeNodePayload(payload []byte) (keys [][]byte, err error) {
	n, rest, err := msgp.ReadArrayHeaderBytes(payload)
	if err != nil {
		return nil, collerrors.NewDecodeError("node key count", err)
	}
	keys = make([][]byte, n)
	for i := range keys {
		var kb []byte
		kb, rest, err = msgp.ReadBytesBytes(rest, nil)
		if err != nil {
			return nil, collerrors.NewDecodeError("node key", err)
		}
		keys[i] = kb
	}
	if len(rest) != 0 {
		return nil, collerrors.NewDecodeError("node payload", nil)
	}
	return keys, nil
}
