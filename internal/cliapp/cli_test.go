package cliapp

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseAddresses_CommaSeparated(t *testing.T) {
	got := parseAddresses(" abc, def ,, ghi ")
	want := []string{"abc", "def", "ghi"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseAddresses_EmptyYieldsNil(t *testing.T) {
	if got := parseAddresses("   "); got != nil {
		t.Errorf("expected nil for blank input, got %v", got)
	}
}

func TestParseAddresses_FromFileOneAddressPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addrs.txt")
	if err := os.WriteFile(path, []byte("addr1\naddr2\n\naddr3\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	got := parseAddresses(path)
	want := []string{"addr1", "addr2", "addr3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFileExists(t *testing.T) {
	if !fileExists(":memory:") {
		t.Error("expected :memory: to be treated as existing")
	}
	path := filepath.Join(t.TempDir(), "present.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if !fileExists(path) {
		t.Error("expected an on-disk file to report as existing")
	}
	if fileExists(filepath.Join(t.TempDir(), "absent.txt")) {
		t.Error("expected a missing path to report as not existing")
	}
}
