package textutil

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Película", "pelicula"},
		{"ESPAÑA", "espana"},
		{"Fútbol en Acción", "futbol en accion"},
		{"über", "uber"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q; want %q", c.in, got, c.want)
		}
	}
}

func TestAttr(t *testing.T) {
	line := `#EXTINF:-1 tvg-id="x1" tvg-name="Some Film" TVG-LANGUAGE="Spanish" group-title="Movies",Some Film (1999)`
	if got := Attr(line, "tvg-name"); got != "Some Film" {
		t.Errorf("tvg-name = %q", got)
	}
	if got := Attr(line, "tvg-language"); got != "Spanish" {
		t.Errorf("tvg-language (case-insensitive) = %q", got)
	}
	if got := Attr(line, "group-title"); got != "Movies" {
		t.Errorf("group-title = %q", got)
	}
	if got := Attr(line, "tvg-country"); got != "" {
		t.Errorf("absent attribute should be empty; got %q", got)
	}
}

func TestContainsWord(t *testing.T) {
	cases := []struct {
		haystack, word string
		want           bool
	}{
		{"peliculas es", "es", true},
		{"es - movies", "es", true},
		{"best movies", "es", false},
		{"descripcion", "es", false},
		{"despertar", "esp", false},
		{"esp vod", "esp", true},
		{"[esp]", "esp", true},
		{"espanol", "esp", false},
		{"", "es", false},
		{"es", "es", true},
	}
	for _, c := range cases {
		if got := ContainsWord(c.haystack, c.word); got != c.want {
			t.Errorf("ContainsWord(%q, %q) = %v; want %v", c.haystack, c.word, got, c.want)
		}
	}
}

func TestURLFingerprint(t *testing.T) {
	a := URLFingerprint("http://x/y.mp4")
	b := URLFingerprint("  http://x/y.mp4  ")
	if a != b {
		t.Errorf("whitespace should not change the fingerprint: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars; got %d", len(a))
	}
	if a == URLFingerprint("http://x/z.mp4") {
		t.Error("distinct URLs should not collide")
	}
}
