package container

import (
	"fmt"
	"testing"

	"corelang/internal/value"
)

func TestHashTableLookupMostRecent(t *testing.T) {
	tbl := NewHashTable()
	tbl.Insert("a", value.MakeInt(1))
	tbl.Insert("a", value.MakeInt(2))
	v, ok := tbl.Lookup("a")
	if !ok || v.Int != 2 {
		t.Fatalf("expected most recent insert (2), got %v ok=%v", v, ok)
	}
	if _, ok := tbl.Lookup("never-inserted"); ok {
		t.Fatal("expected lookup miss for absent key")
	}
}

func TestHashTableGrowth(t *testing.T) {
	tbl := NewHashTable()
	for i := 0; i < 200; i++ {
		tbl.Insert(fmt.Sprintf("k%d", i), value.MakeInt(int64(i)))
	}
	for i := 0; i < 200; i++ {
		v, ok := tbl.Lookup(fmt.Sprintf("k%d", i))
		if !ok || v.Int != int64(i) {
			t.Fatalf("lookup k%d: got %v ok=%v", i, v, ok)
		}
	}
	if tbl.Len() != 200 {
		t.Fatalf("expected 200 entries, got %d", tbl.Len())
	}
}

func TestHashTableDelete(t *testing.T) {
	tbl := NewHashTable()
	tbl.Insert("x", value.MakeInt(1))
	if !tbl.Delete("x") {
		t.Fatal("expected delete to succeed")
	}
	if _, ok := tbl.Lookup("x"); ok {
		t.Fatal("expected lookup miss after delete")
	}
}
