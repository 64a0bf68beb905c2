package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir, err := os.MkdirTemp("", "config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	fname := filepath.Join(dir, "harvest.toml")
	err = os.WriteFile(fname, []byte(`
ObjectStore     = "s3://s3.amazonaws.com/fedora/objects"
DatastreamStore = "/data/datastreamStore"
Namespace       = "imagined"
Workers         = 0
SentryDSN       = "https://key@sentry.example.org/1"

[Database]
Driver = "mysql"
Dial   = "harvest:secret@tcp(db:3306)/harvest"
`), 0644)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(fname)
	if err != nil {
		t.Fatal(err)
	}
	var table = []struct {
		name     string
		received interface{}
		expected interface{}
	}{
		{"ObjectStore", cfg.ObjectStore, "s3://s3.amazonaws.com/fedora/objects"},
		{"DatastreamStore", cfg.DatastreamStore, "/data/datastreamStore"},
		{"Namespace", cfg.Namespace, "imagined"},
		{"Workers", cfg.Workers, 1},
		{"SentryDSN", cfg.SentryDSN, "https://key@sentry.example.org/1"},
		{"Driver", cfg.Database.Driver, "mysql"},
		{"Dial", cfg.Database.Dial, "harvest:secret@tcp(db:3306)/harvest"},
		{"Table", cfg.Database.Table, "records"},
		{"Report", cfg.Report, ""},
	}
	for _, tab := range table {
		if tab.received != tab.expected {
			t.Errorf("%s: Received %v, expected %v", tab.name, tab.received, tab.expected)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	d := Default()
	if cfg.ObjectStore != d.ObjectStore || cfg.Database != d.Database {
		t.Errorf("Received %+v, expected %+v", cfg, d)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("/does/not/exist.toml"); err == nil {
		t.Errorf("Expected an error for a missing file")
	}
	f, err := os.CreateTemp("", "bad*.toml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	f.WriteString("Workers = \"many\"\n")
	f.Close()
	if _, err := Load(f.Name()); err == nil {
		t.Errorf("Expected an error for a bad value")
	}
}
