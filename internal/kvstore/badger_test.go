package kvstore

import "testing"

func TestBadgerStore_Contract(t *testing.T) {
	store, err := OpenBadger("")
	if err != nil {
		t.Fatalf("インメモリBadgerのオープンに失敗: %v", err)
	}
	defer store.Close()

	runStoreContract(t, store)
}

func TestBadgerStore_OnDisk(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("Badgerのオープンに失敗: %v", err)
	}
	defer store.Close()

	runStoreContract(t, store)
}
