package btree

import (
	"context"
	"testing"

	"github.com/daemonkv/collections/internal/refstore"
	"github.com/daemonkv/collections/objstore"
)

func TestBTreePersistentPutFindAcrossTransactions(t *testing.T) {
	store := refstore.New(0)
	ctx := context.Background()

	rootHandle, err := objstore.RunTransaction(ctx, store, func(txn objstore.Txn) (objstore.Handle, error) {
		bt, err := CreateEmpty(txn, 4)
		if err != nil {
			return nil, err
		}
		for _, k := range []string{"pear", "apple", "plum", "banana", "kiwi"} {
			vh, err := txn.Create([]byte(k), nil)
			if err != nil {
				return nil, err
			}
			if err := bt.Put([]byte(k), vh); err != nil {
				return nil, err
			}
		}
		return bt.RootHandle(), nil
	})
	if err != nil {
		t.Fatalf("build transaction: %v", err)
	}

	_, err = objstore.RunTransaction(ctx, store, func(txn objstore.Txn) (any, error) {
		bt, err := FromRoot(txn, 4, rootHandle)
		if err != nil {
			return nil, err
		}
		for _, k := range []string{"pear", "apple", "plum", "banana", "kiwi"} {
			vh, ok, err := bt.Find([]byte(k))
			if err != nil {
				return nil, err
			}
			if !ok {
				t.Fatalf("Find(%q) not found", k)
			}
			payload, _, err := txn.Read(vh)
			if err != nil {
				return nil, err
			}
			if string(payload) != k {
				t.Fatalf("Read(handle for %q) = %q", k, payload)
			}
		}
		if _, ok, err := bt.Find([]byte("missing")); err != nil || ok {
			t.Fatalf("Find(missing) = ok=%v err=%v", ok, err)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("read transaction: %v", err)
	}
}

func TestBTreePersistentRemove(t *testing.T) {
	store := refstore.New(0)
	ctx := context.Background()

	rootHandle, err := objstore.RunTransaction(ctx, store, func(txn objstore.Txn) (objstore.Handle, error) {
		bt, err := CreateEmpty(txn, 3)
		if err != nil {
			return nil, err
		}
		for i := 0; i < 12; i++ {
			vh, err := txn.Create([]byte{byte(i)}, nil)
			if err != nil {
				return nil, err
			}
			if err := bt.Put([]byte{byte(i)}, vh); err != nil {
				return nil, err
			}
		}
		for i := 0; i < 6; i++ {
			if err := bt.Remove([]byte{byte(i)}); err != nil {
				return nil, err
			}
		}
		return bt.RootHandle(), nil
	})
	if err != nil {
		t.Fatalf("build+remove transaction: %v", err)
	}

	_, err = objstore.RunTransaction(ctx, store, func(txn objstore.Txn) (any, error) {
		bt, err := FromRoot(txn, 3, rootHandle)
		if err != nil {
			return nil, err
		}
		n, err := bt.Size()
		if err != nil {
			return nil, err
		}
		if n != 6 {
			t.Fatalf("Size() = %d, want 6", n)
		}
		if err := bt.CheckInvariants(); err != nil {
			t.Fatalf("CheckInvariants: %v", err)
		}
		for i := 0; i < 6; i++ {
			if _, ok, err := bt.Find([]byte{byte(i)}); err != nil || ok {
				t.Fatalf("Find(%d) = ok=%v err=%v, want absent", i, ok, err)
			}
		}
		for i := 6; i < 12; i++ {
			if _, ok, err := bt.Find([]byte{byte(i)}); err != nil || !ok {
				t.Fatalf("Find(%d) = ok=%v err=%v, want present", i, ok, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("verify transaction: %v", err)
	}
}

func TestBTreePersistentRestartsAreInvisible(t *testing.T) {
	store := refstore.New(0)
	store.InjectRestarts(2)
	ctx := context.Background()

	attempts := 0
	_, err := objstore.RunTransaction(ctx, store, func(txn objstore.Txn) (any, error) {
		attempts++
		bt, err := CreateEmpty(txn, 4)
		if err != nil {
			return nil, err
		}
		vh, err := txn.Create([]byte("v"), nil)
		if err != nil {
			return nil, err
		}
		return nil, bt.Put([]byte("k"), vh)
	})
	if err != nil {
		t.Fatalf("RunTransaction: %v", err)
	}
	if attempts < 3 {
		t.Fatalf("attempts = %d, want at least 3 (2 restarts + 1 success)", attempts)
	}
}
