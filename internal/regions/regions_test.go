package regions

import (
	"slices"
	"testing"
)

func TestNamesStartWithDefault(t *testing.T) {
	t.Parallel()

	names := Names()
	if len(names) == 0 || names[0] != DefaultName {
		t.Fatalf("expected %q first, got %v", DefaultName, names[:1])
	}
	rest := names[1:]
	if !slices.IsSorted(rest) {
		t.Fatalf("expected remaining names sorted, got %v", rest)
	}
	if !slices.Contains(rest, DMV) {
		t.Fatal("expected DMV in dropdown")
	}
}

func TestEveryPresetIsFilterable(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		if name == DefaultName {
			continue
		}
		if _, ok := Members(name); !ok {
			t.Fatalf("preset %q has no abbreviation or member set", name)
		}
	}
}

func TestMembers(t *testing.T) {
	t.Parallel()

	got, ok := Members("Virginia")
	if !ok || !slices.Equal(got, []string{"VA"}) {
		t.Fatalf("unexpected members for Virginia: %v %v", got, ok)
	}

	got, ok = Members(DMV)
	if !ok || !slices.Equal(got, []string{"DC", "MD", "VA"}) {
		t.Fatalf("unexpected members for DMV: %v %v", got, ok)
	}

	got[0] = "XX"
	again, _ := Members(DMV)
	if again[0] != "DC" {
		t.Fatal("Members must return a copy")
	}

	if _, ok := Members("Atlantis"); ok {
		t.Fatal("unknown region should not resolve")
	}
}

func TestDefaultView(t *testing.T) {
	t.Parallel()

	v := Default()
	if v.Name != DefaultName || v.Zoom != 4.5 {
		t.Fatalf("unexpected default view: %+v", v)
	}
	if v.Center.Lon != -98.5795 || v.Center.Lat != 39.8283 {
		t.Fatalf("unexpected default center: %+v", v.Center)
	}
}
