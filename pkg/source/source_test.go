package source

import (
	"context"
	"testing"

	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/semver"
)

func TestStaticReturnsCopies(t *testing.T) {
	s := &Static{
		InstalledRecords: []*module.Record{{ID: "A", Version: semver.MustParseVersion("1.0.0"), Installed: true}},
		RemoteRecords:    []*module.Record{{ID: "B", Version: semver.MustParseVersion("2.0.0")}},
	}
	ctx := context.Background()

	installed, err := s.FetchInstalled(ctx)
	if err != nil {
		t.Fatalf("FetchInstalled() error: %v", err)
	}
	installed[0].Errors = append(installed[0].Errors, "mutated")
	if len(s.InstalledRecords[0].Errors) != 0 {
		t.Error("FetchInstalled should return copies")
	}

	remote, err := s.FetchRemote(ctx, "ignored")
	if err != nil {
		t.Fatalf("FetchRemote() error: %v", err)
	}
	if len(remote) != 1 || remote[0].ID != "B" {
		t.Errorf("FetchRemote() = %v", remote)
	}
}

func TestStaticHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := (&Static{}).FetchRemote(ctx, ""); err != context.Canceled {
		t.Errorf("FetchRemote() error = %v, want context.Canceled", err)
	}
}

func TestCombine(t *testing.T) {
	remote := &Static{RemoteRecords: []*module.Record{{ID: "B", Version: semver.MustParseVersion("1.0.0")}}}
	src := Combine(Empty{}, remote)
	ctx := context.Background()

	installed, err := src.FetchInstalled(ctx)
	if err != nil || len(installed) != 0 {
		t.Errorf("FetchInstalled() = %v, %v", installed, err)
	}
	records, err := src.FetchRemote(ctx, "")
	if err != nil || len(records) != 1 {
		t.Errorf("FetchRemote() = %v, %v", records, err)
	}
}

func TestMarkInstalled(t *testing.T) {
	in := []*module.Record{{ID: "A", Version: semver.MustParseVersion("1.0.0"), InitializationMode: module.OnDemand}}
	out := MarkInstalled(in)

	if !out[0].Installed || out[0].InitializationMode != module.Immediate {
		t.Errorf("MarkInstalled() = %+v", out[0])
	}
	if in[0].Installed {
		t.Error("MarkInstalled should not modify its input")
	}
}

func TestRefreshRequested(t *testing.T) {
	ctx := context.Background()
	if RefreshRequested(ctx) {
		t.Error("plain context should not request a refresh")
	}
	if !RefreshRequested(WithRefresh(ctx)) {
		t.Error("WithRefresh context should request a refresh")
	}
	child, cancel := context.WithCancel(WithRefresh(ctx))
	defer cancel()
	if !RefreshRequested(child) {
		t.Error("refresh flag should survive derived contexts")
	}
}
