package db

import (
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	dh, err := New(BOLT, filepath.Join(t.TempDir(), "ud.db"))
	if err != nil {
		t.Fatalf("err:%e", err)
	}

	if err = Close(BOLT, dh); err != nil {
		t.Errorf("err:%e", err)
	}

	if _, err = New("cassandra", ""); err == nil {
		t.Errorf("expected error for unknown database type")
	}
}
