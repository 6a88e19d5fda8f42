package repository

import "testing"

func TestCursorRepo_AbsentKey(t *testing.T) {
	repo := NewCursorRepo(testDB(t))

	value, ok, err := repo.Get("bridge:activities:last_synced_id")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok || value != "" {
		t.Errorf("want absent cursor, got ok=%v value=%q", ok, value)
	}
}

func TestCursorRepo_SetOverwrites(t *testing.T) {
	repo := NewCursorRepo(testDB(t))
	const key = "bridge:activities:last_synced_id"

	if err := repo.Set(key, "evt_1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.Set(key, "evt_2"); err != nil {
		t.Fatalf("set: %v", err)
	}

	value, ok, err := repo.Get(key)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if value != "evt_2" {
		t.Errorf("want evt_2, got %q", value)
	}
}

func TestCursorRepo_KeysAreIndependent(t *testing.T) {
	repo := NewCursorRepo(testDB(t))

	if err := repo.Set("stream:a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Set("stream:b", "2"); err != nil {
		t.Fatal(err)
	}

	a, _, _ := repo.Get("stream:a")
	b, _, _ := repo.Get("stream:b")
	if a != "1" || b != "2" {
		t.Errorf("cross-talk between keys: a=%q b=%q", a, b)
	}
}
