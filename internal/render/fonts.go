package render

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var fallbackFace font.Face = basicfont.Face7x13

// Style selects one of the embedded Go font files.
type Style struct {
	Mono   bool
	Bold   bool
	Italic bool
}

var monospaceFamilies = map[string]bool{
	"monospace":        true,
	"courier":          true,
	"courier new":      true,
	"consolas":         true,
	"menlo":            true,
	"monaco":           true,
	"lucida console":   true,
	"go mono":          true,
	"dejavu sans mono": true,
}

// ResolveStyle maps a CSS font-family list onto an embedded face. The first
// recognised monospace family wins; every other family renders as Go Regular.
// "bold" and "italic"/"oblique" keywords anywhere in the string select the
// matching weight and slant.
func ResolveStyle(family string) Style {
	lower := strings.ToLower(family)
	style := Style{
		Bold:   strings.Contains(lower, "bold"),
		Italic: strings.Contains(lower, "italic") || strings.Contains(lower, "oblique"),
	}

	for _, name := range strings.Split(lower, ",") {
		name = strings.Trim(strings.TrimSpace(name), `"'`)
		name = strings.TrimSpace(strings.NewReplacer("bold", "", "italic", "", "oblique", "").Replace(name))
		if monospaceFamilies[name] {
			style.Mono = true
			break
		}
	}
	return style
}

func (st Style) ttf() []byte {
	switch {
	case st.Mono && st.Bold && st.Italic:
		return gomonobolditalic.TTF
	case st.Mono && st.Bold:
		return gomonobold.TTF
	case st.Mono && st.Italic:
		return gomonoitalic.TTF
	case st.Mono:
		return gomono.TTF
	case st.Bold && st.Italic:
		return gobolditalic.TTF
	case st.Bold:
		return gobold.TTF
	case st.Italic:
		return goitalic.TTF
	default:
		return goregular.TTF
	}
}

// parsed fonts are shared by every surface; faces are not, since a
// font.Face is not safe for concurrent use.
var (
	fontsMu sync.Mutex
	fonts   = make(map[Style]*opentype.Font)
)

func loadFont(st Style) (*opentype.Font, error) {
	fontsMu.Lock()
	defer fontsMu.Unlock()

	if f, ok := fonts[st]; ok {
		return f, nil
	}
	f, err := opentype.Parse(st.ttf())
	if err != nil {
		return nil, fmt.Errorf("parse embedded font %+v: %w", st, err)
	}
	fonts[st] = f
	return f, nil
}

const maxCachedFaces = 32

type faceKey struct {
	style Style
	size  float64
}

// face returns a cached face sized in pixels (72 DPI makes points equal pixels).
func (s *Surface) face(family string, size float64) (font.Face, error) {
	key := faceKey{style: ResolveStyle(family), size: size}
	if f, ok := s.faces[key]; ok {
		return f, nil
	}
	if len(s.faces) >= maxCachedFaces {
		s.faces = make(map[faceKey]font.Face)
	}

	parsed, err := loadFont(key.style)
	if err != nil {
		return nil, err
	}
	f, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	s.faces[key] = f
	return f, nil
}
