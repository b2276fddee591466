// Package fixtures provides recorded mouth shapes for exercising the reader
// without a camera.
package fixtures

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/lipread/internal/mesh"
)

//go:embed testdata/*.yaml
var utterancesFS embed.FS

// Shape is one frame: outer height, outer width, inner height, inner width.
type Shape [4]float64

// Utterance is a recorded word as a series of mouth shapes.
type Utterance struct {
	Word   string  `yaml:"word"`
	Frames []Shape `yaml:"frames"`
}

// Load loads the utterance recorded under name, e.g. "hello".
func Load(name string) (Utterance, error) {
	data, err := utterancesFS.ReadFile(path.Join("testdata", name+".yaml"))
	if err != nil {
		return Utterance{}, fmt.Errorf("load utterance %s: %w", name, err)
	}

	var u Utterance
	if err := yaml.Unmarshal(data, &u); err != nil {
		return Utterance{}, fmt.Errorf("decode utterance %s: %w", name, err)
	}
	if u.Word == "" || len(u.Frames) == 0 {
		return Utterance{}, fmt.Errorf("utterance %s is empty", name)
	}
	return u, nil
}

// Names lists the recorded utterances in lexical order.
func Names() ([]string, error) {
	entries, err := utterancesFS.ReadDir("testdata")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// Faces renders every frame as a synthetic face mesh.
func (u Utterance) Faces() []mesh.FaceLandmarks {
	faces := make([]mesh.FaceLandmarks, len(u.Frames))
	for i, s := range u.Frames {
		faces[i] = mesh.MouthLandmarks(s[0], s[1], s[2], s[3])
	}
	return faces
}
