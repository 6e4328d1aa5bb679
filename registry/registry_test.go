package registry

import (
	"testing"

	"github.com/tunbase/apphost/types"
)

func testPackage(id, appID string) *types.ExtensionPackage {
	return &types.ExtensionPackage{
		Metadata: types.ExtensionMetadata{
			ID:      id,
			Name:    "Test " + id,
			Version: "1.0.0",
		},
		App: &types.AppDefinition{ID: appID, Name: "App " + appID},
	}
}

func TestAddAndGet(t *testing.T) {
	r := New()

	if !r.Add(testPackage("pkg1", "app1"), types.StatusInstalled, false) {
		t.Fatal("first add should succeed")
	}
	if r.Add(testPackage("pkg1", "app1"), types.StatusInstalled, false) {
		t.Error("duplicate add should fail")
	}

	entry, ok := r.Get("pkg1")
	if !ok {
		t.Fatal("expected pkg1 to be registered")
	}
	if entry.Status != types.StatusInstalled || entry.Enabled {
		t.Errorf("unexpected entry state: %+v", entry)
	}
	if entry.RegisteredAt.IsZero() {
		t.Error("registration time should be set")
	}

	if r.Count() != 1 {
		t.Errorf("expected count 1, got %d", r.Count())
	}
}

func TestSetEnabledFlipsStatus(t *testing.T) {
	r := New()
	r.Add(testPackage("pkg1", "app1"), types.StatusInstalled, false)

	if !r.SetEnabled("pkg1", true) {
		t.Fatal("expected SetEnabled to find the entry")
	}
	entry, _ := r.Get("pkg1")
	if !entry.Enabled || entry.Status != types.StatusActive {
		t.Errorf("expected active entry, got %+v", entry)
	}

	r.SetEnabled("pkg1", false)
	entry, _ = r.Get("pkg1")
	if entry.Enabled || entry.Status != types.StatusDisabled {
		t.Errorf("expected disabled entry, got %+v", entry)
	}

	if r.SetEnabled("missing", true) {
		t.Error("SetEnabled on unknown id should report false")
	}
}

func TestAppByIDSeparateNamespace(t *testing.T) {
	r := New()
	r.Add(testPackage("pkg1", "app1"), types.StatusInstalled, false)

	// package id and App id are distinct namespaces
	if _, _, ok := r.AppByID("pkg1"); ok {
		t.Error("package id must not resolve as App id")
	}

	app, entry, ok := r.AppByID("app1")
	if !ok {
		t.Fatal("expected app1 to resolve")
	}
	if app.ID != "app1" || entry.Package.Metadata.ID != "pkg1" {
		t.Errorf("unexpected resolution: app=%q pkg=%q", app.ID, entry.Package.Metadata.ID)
	}
}

func TestEnabledApps(t *testing.T) {
	r := New()
	r.Add(testPackage("pkg1", "app1"), types.StatusActive, true)
	r.Add(testPackage("pkg2", "app2"), types.StatusInstalled, false)
	r.Add(testPackage("pkg3", "app3"), types.StatusActive, true)

	apps := r.EnabledApps()
	if len(apps) != 2 {
		t.Fatalf("expected 2 enabled apps, got %d", len(apps))
	}
	for _, app := range apps {
		if app.ID == "app2" {
			t.Error("disabled package's app must not be listed")
		}
	}
}

func TestRemove(t *testing.T) {
	r := New()
	r.Add(testPackage("pkg1", "app1"), types.StatusInstalled, false)
	r.Remove("pkg1")

	if r.Has("pkg1") {
		t.Error("removed entry still present")
	}
	if _, _, ok := r.AppByID("app1"); ok {
		t.Error("removed package's app still resolves")
	}
}

func TestListReturnsCopy(t *testing.T) {
	r := New()
	r.Add(testPackage("pkg1", "app1"), types.StatusInstalled, false)

	list := r.List()
	delete(list, "pkg1")
	if !r.Has("pkg1") {
		t.Error("mutating the listed map must not affect the registry")
	}
}
