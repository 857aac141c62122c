package cache

import (
	"path/filepath"
	"testing"
)

func TestNewKeyNormalizesArchivePath(t *testing.T) {
	abs := NewKey("/data/comics/vol1.zip", "001.png", OriginalVariant())
	messy := NewKey("/data/comics/../comics/./vol1.zip", "001.png", OriginalVariant())

	if abs != messy {
		t.Fatalf("differing spellings of one archive produced distinct keys: %s vs %s", abs, messy)
	}

	rel := NewKey("vol1.zip", "001.png", OriginalVariant())
	if !filepath.IsAbs(rel.Archive) {
		t.Fatalf("relative archive path was not resolved: %q", rel.Archive)
	}
}

func TestKeyVariantsAreDistinct(t *testing.T) {
	orig := NewKey("/a.zip", "x.png", OriginalVariant())
	thumb := NewKey("/a.zip", "x.png", ThumbnailVariant(280, 280))
	resized := NewKey("/a.zip", "x.png", ResizedVariant(280, 280))
	smaller := NewKey("/a.zip", "x.png", ThumbnailVariant(180, 180))

	keys := []Key{orig, thumb, resized, smaller}
	for i := range keys {
		for j := range keys {
			if i != j && keys[i] == keys[j] {
				t.Fatalf("keys %s and %s must differ", keys[i], keys[j])
			}
		}
	}
}

func TestKeyString(t *testing.T) {
	orig := NewKey("/a.zip", "x.png", OriginalVariant())
	if got, want := orig.String(), "/a.zip!x.png@original"; got != want {
		t.Fatalf("unexpected key string %q; want %q", got, want)
	}

	thumb := NewKey("/a.zip", "x.png", ThumbnailVariant(280, 180))
	if got, want := thumb.String(), "/a.zip!x.png@thumbnail:280x180"; got != want {
		t.Fatalf("unexpected key string %q; want %q", got, want)
	}
}
