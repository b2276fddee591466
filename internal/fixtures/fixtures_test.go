package fixtures

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ayusman/lipread/internal/features"
)

func TestNames(t *testing.T) {
	names, err := Names()
	if err != nil {
		t.Fatalf("Names() error = %v", err)
	}

	want := []string{"hello", "no", "yes"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestLoad(t *testing.T) {
	names, err := Names()
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			u, err := Load(name)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if u.Word != name {
				t.Errorf("Word = %q, want %q", u.Word, name)
			}
			if len(u.Faces()) != len(u.Frames) {
				t.Errorf("len(Faces()) = %d, want %d", len(u.Faces()), len(u.Frames))
			}
		})
	}

	if _, err := Load("goodbye"); err == nil {
		t.Error("Load(goodbye) should fail")
	}
}

func TestFaces_MatchRecordedShapes(t *testing.T) {
	u, err := Load("hello")
	if err != nil {
		t.Fatal(err)
	}

	ex := features.NewExtractor(zerolog.Nop())
	for i, face := range u.Faces() {
		g := ex.Extract(face).Geometry
		s := u.Frames[i]
		if math.Abs(g.Height-s[0]) > 1e-9 || math.Abs(g.Width-s[1]) > 1e-9 {
			t.Errorf("frame %d: geometry = %+v, want height %v width %v", i, g, s[0], s[1])
		}
	}
}
