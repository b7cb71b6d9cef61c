package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/semver"
)

func testRecord() *module.Record {
	return &module.Record{
		ID:           "Acme.Orders",
		Version:      semver.MustParseVersion("1.2.0"),
		Dependencies: []module.Dependency{{ID: "Acme.Core", Range: "^1.0"}},
		Errors:       []string{"activation failed"},
		Title:        "Orders",
		Tags:         []string{"sales"},
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc := NewDocument(testRecord(), at)

	if doc.Key != "Acme.Orders@1.2.0" {
		t.Errorf("Key = %q, want Acme.Orders@1.2.0", doc.Key)
	}

	data, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw bson.M
	if err := bson.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal raw: %v", err)
	}
	for _, key := range []string{"_id", "id", "version", "dependencies", "errors", "installed_at"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("stored document missing %q: %v", key, raw)
		}
	}

	var decoded Document
	if err := bson.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	r, err := decoded.Record()
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if r.String() != "Acme.Orders@1.2.0" {
		t.Errorf("identity = %s", r)
	}
	if !r.Installed || r.InitializationMode != module.Immediate {
		t.Errorf("Installed = %v, mode = %v, want installed immediate", r.Installed, r.InitializationMode)
	}
	if len(r.Dependencies) != 1 || r.Dependencies[0].Range != "^1.0" {
		t.Errorf("Dependencies = %+v", r.Dependencies)
	}
	if len(r.Errors) != 1 || r.Errors[0] != "activation failed" {
		t.Errorf("Errors = %v", r.Errors)
	}
	if !decoded.InstalledAt.Equal(at) {
		t.Errorf("InstalledAt = %v, want %v", decoded.InstalledAt, at)
	}
}

func TestDocumentInvalidVersion(t *testing.T) {
	doc := Document{Key: "A@x", Manifest: module.Manifest{ID: "A", Version: "not-a-version"}}
	if _, err := doc.Record(); err == nil {
		t.Fatal("expected error for invalid version")
	}
}

func TestOpenRequiresURI(t *testing.T) {
	if _, err := Open(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error without uri")
	}
}

// TestStoreIntegration runs against a live server when MODCAT_MONGO_URI is set.
func TestStoreIntegration(t *testing.T) {
	uri := os.Getenv("MODCAT_MONGO_URI")
	if uri == "" {
		t.Skip("MODCAT_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := Open(ctx, Config{URI: uri, Database: "modcat_test", Collection: "installed_" + time.Now().Format("150405.000000")}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() {
		_ = s.coll.Drop(context.Background())
		_ = s.Close(context.Background())
	}()

	r := testRecord()
	if err := s.Install(ctx, r); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := s.Install(ctx, r); err != nil {
		t.Fatalf("Install again: %v", err)
	}

	records, err := s.FetchInstalled(ctx)
	if err != nil {
		t.Fatalf("FetchInstalled: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	if err := s.SetErrors(ctx, r.Identity(), nil); err != nil {
		t.Fatalf("SetErrors: %v", err)
	}
	records, _ = s.FetchInstalled(ctx)
	if len(records) != 1 || records[0].HasErrors() {
		t.Errorf("errors not cleared: %+v", records)
	}

	removed, err := s.Uninstall(ctx, r.Identity())
	if err != nil || !removed {
		t.Fatalf("Uninstall = %v, %v", removed, err)
	}
	removed, _ = s.Uninstall(ctx, r.Identity())
	if removed {
		t.Error("second Uninstall should report nothing removed")
	}
}
