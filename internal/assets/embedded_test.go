package assets

import (
	"errors"
	"strings"
	"testing"
)

func TestEmbeddedLoader_LoadStyle(t *testing.T) {
	t.Parallel()

	t.Run("base print style", func(t *testing.T) {
		t.Parallel()

		css, err := NewEmbeddedLoader().LoadStyle(BaseStyleName)
		if err != nil {
			t.Fatalf("LoadStyle(%q) error = %v", BaseStyleName, err)
		}
		// Overlays reveal these toggles with display: inline.
		for _, sel := range []string{".task-labels", ".completion2", ".task-resources", "div#scroll_container"} {
			if !strings.Contains(css, sel) {
				t.Errorf("print.css lacks %s", sel)
			}
		}
	})

	t.Run("unknown style", func(t *testing.T) {
		t.Parallel()

		_, err := NewEmbeddedLoader().LoadStyle("nonexistent")
		if !errors.Is(err, ErrStyleNotFound) {
			t.Errorf("error = %v, want ErrStyleNotFound", err)
		}
	})

	t.Run("invalid name", func(t *testing.T) {
		t.Parallel()

		_, err := NewEmbeddedLoader().LoadStyle("../print")
		if !errors.Is(err, ErrInvalidAssetName) {
			t.Errorf("error = %v, want ErrInvalidAssetName", err)
		}
	})
}

func TestLoadStyle_PackageLevel(t *testing.T) {
	t.Parallel()

	got, err := LoadStyle(BaseStyleName)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := NewEmbeddedLoader().LoadStyle(BaseStyleName)
	if got != want {
		t.Error("LoadStyle() differs from the embedded loader")
	}
}
