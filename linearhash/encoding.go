package linearhash

import (
	"github.com/daemonkv/collections/collerrors"
	"github.com/tinylib/msgp/msgp"
)

// Root and Bucket payloads (spec §6.2) use the same low-level msgp
// append/read helpers node encoding in the btree package does, for the
// same reason: the wire layout is fixed by the spec, not by whatever a
// generated Marshaler would choose. A root's bucket handles and a bucket's
// value handles live in the object's refs, exactly as a btree node's
// values and children do.

// encodeRootPayload writes a map-header of exactly 6 entries (spec §6.2),
// mirroring the original's generated Root.MarshalMsg field-for-field.
func encodeRootPayload(r Root) []byte {
	b := msgp.AppendMapHeader(nil, 6)
	b = msgp.AppendString(b, "Size")
	b = msgp.AppendInt(b, r.Size)
	b = msgp.AppendString(b, "BucketCount")
	b = msgp.AppendInt(b, r.BucketCount)
	b = msgp.AppendString(b, "SplitIndex")
	b = msgp.AppendInt(b, r.SplitIndex)
	b = msgp.AppendString(b, "MaskHigh")
	b = msgp.AppendUint64(b, r.MaskHigh)
	b = msgp.AppendString(b, "MaskLow")
	b = msgp.AppendUint64(b, r.MaskLow)
	b = msgp.AppendString(b, "HashKey")
	b = msgp.AppendBytes(b, r.HashKey[:])
	return b
}

func decodeRootPayload(payload []byte) (Root, error) {
	n, rest, err := msgp.ReadMapHeaderBytes(payload)
	if err != nil {
		return Root{}, collerrors.NewDecodeError("root header", err)
	}
	var r Root
	var haveSize, haveBucketCount, haveSplitIndex, haveMaskHigh, haveMaskLow, haveHashKey bool
	for i := uint32(0); i < n; i++ {
		var key string
		key, rest, err = msgp.ReadStringBytes(rest)
		if err != nil {
			return Root{}, collerrors.NewDecodeError("root key", err)
		}
		switch key {
		case "Size":
			r.Size, rest, err = msgp.ReadIntBytes(rest)
			haveSize = true
		case "BucketCount":
			r.BucketCount, rest, err = msgp.ReadIntBytes(rest)
			haveBucketCount = true
		case "SplitIndex":
			r.SplitIndex, rest, err = msgp.ReadIntBytes(rest)
			haveSplitIndex = true
		case "MaskHigh":
			r.MaskHigh, rest, err = msgp.ReadUint64Bytes(rest)
			haveMaskHigh = true
		case "MaskLow":
			r.MaskLow, rest, err = msgp.ReadUint64Bytes(rest)
			haveMaskLow = true
		case "HashKey":
			var kb []byte
			kb, rest, err = msgp.ReadBytesBytes(rest, nil)
			if err == nil {
				if len(kb) != len(r.HashKey) {
					return Root{}, collerrors.NewDecodeError("root hash key length", nil)
				}
				copy(r.HashKey[:], kb)
			}
			haveHashKey = true
		default:
			return Root{}, collerrors.NewDecodeError("unknown root key", nil)
		}
		if err != nil {
			return Root{}, collerrors.NewDecodeError("root "+key, err)
		}
	}
	if !(haveSize && haveBucketCount && haveSplitIndex && haveMaskHigh && haveMaskLow && haveHashKey) {
		return Root{}, collerrors.NewDecodeError("root payload missing a key", nil)
	}
	if len(rest) != 0 {
		return Root{}, collerrors.NewDecodeError("root payload", nil)
	}
	return r, nil
}

// encodeBucketPayload writes exactly Capacity binary entries (spec §6.2),
// one per slot, with an empty slot as a zero-length binary — the original
// always encodes its fixed-size entries array the same way.
func encodeBucketPayload(keys [Capacity][]byte) []byte {
	b := msgp.AppendArrayHeader(nil, Capacity)
	for _, k := range keys {
		b = msgp.AppendBytes(b, k)
	}
	return b
}

func decodeBucketPayload(payload []byte) ([Capacity][]byte, error) {
	var keys [Capacity][]byte
	n, rest, err := msgp.ReadArrayHeaderBytes(payload)
	if err != nil {
		return keys, collerrors.NewDecodeError("bucket header", err)
	}
	if n != Capacity {
		return keys, collerrors.NewDecodeError("bucket header", nil)
	}
	for i := range keys {
		var k []byte
		k, rest, err = msgp.ReadBytesBytes(rest, nil)
		if err != nil {
			return keys, collerrors.NewDecodeError("bucket key", err)
		}
		if len(k) > 0 {
			keys[i] = k
		}
	}
	if len(rest) != 0 {
		return keys, collerrors.NewDecodeError("bucket payload", nil)
	}
	return keys, nil
}
