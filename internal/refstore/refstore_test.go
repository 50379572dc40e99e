package refstore

import (
	"context"
	"testing"

	"github.com/daemonkv/collections/objstore"
)

func TestCreateReadWrite(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	_, err := objstore.RunTransaction(ctx, s, func(txn objstore.Txn) (any, error) {
		h, err := txn.Create([]byte("v1"), nil)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		payload, refs, err := txn.Read(h)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if string(payload) != "v1" || len(refs) != 0 {
			t.Fatalf("Read = %q, %v", payload, refs)
		}
		if err := txn.Write(h, []byte("v2"), []objstore.Handle{h}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		payload, refs, err = txn.Read(h)
		if err != nil {
			t.Fatalf("Read after write: %v", err)
		}
		if string(payload) != "v2" || len(refs) != 1 || !refs[0].Same(h) {
			t.Fatalf("Read after write = %q, %v", payload, refs)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestInjectRestartsRetries(t *testing.T) {
	s := New(0)
	s.InjectRestarts(3)
	ctx := context.Background()

	attempts := 0
	_, err := s.RunTransaction(ctx, func(txn objstore.Txn) (any, error) {
		attempts++
		_, err := txn.Create([]byte("x"), nil)
		return nil, err
	})
	if err != nil {
		t.Fatalf("RunTransaction: %v", err)
	}
	if attempts != 4 {
		t.Fatalf("attempts = %d, want 4 (3 restarts + 1 success)", attempts)
	}
}

func TestReadForeignHandleErrors(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	_, err := s.RunTransaction(ctx, func(txn objstore.Txn) (any, error) {
		_, _, err := txn.Read(fakeHandle{})
		if err == nil {
			t.Fatalf("Read with a foreign handle type should error")
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

type fakeHandle struct{}

func (fakeHandle) Same(other objstore.Handle) bool {
	_, ok := other.(fakeHandle)
	return ok
}
