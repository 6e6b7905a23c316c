package testutil

import (
	"embed"
	"encoding/json"
	"testing"
)

//go:embed testdata/*.json
var fixtures embed.FS

// Record returns a provider record from testdata by file name.
func Record(t testing.TB, name string) json.RawMessage {
	t.Helper()
	data, err := fixtures.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return json.RawMessage(data)
}
