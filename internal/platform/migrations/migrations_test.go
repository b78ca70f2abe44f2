package migrations

import "testing"

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := files.ReadDir("sql")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one embedded migration file")
	}

	ups, downs := 0, 0
	for _, e := range entries {
		name := e.Name()
		switch {
		case len(name) > 7 && name[len(name)-7:] == ".up.sql":
			ups++
		case len(name) > 9 && name[len(name)-9:] == ".down.sql":
			downs++
		default:
			t.Fatalf("unexpected migration file name: %s", name)
		}
	}
	if ups != downs {
		t.Fatalf("expected matching up/down counts, got %d up, %d down", ups, downs)
	}
	if ups == 0 {
		t.Fatal("expected at least one up migration")
	}
}
