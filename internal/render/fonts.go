package render

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Role is the semantic size of a piece of text.
type Role string

const (
	Small  Role = "small"
	Medium Role = "medium"
	Large  Role = "large"
	Huge   Role = "huge"
)

var defaultSizes = map[Role]float64{
	Small:  16,
	Medium: 24,
	Large:  40,
	Huge:   64,
}

// FaceSource produces a face at the given pixel size.
type FaceSource struct {
	Name string
	Load func(size float64) (font.Face, error)
}

// FileFace loads a TrueType/OpenType file.
func FileFace(path string) FaceSource {
	return FaceSource{
		Name: path,
		Load: func(size float64) (font.Face, error) {
			if path == "" {
				return nil, errors.New("no font file configured")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read font: %w", err)
			}
			return parseFace(data, size)
		},
	}
}

// EmbeddedFace uses the Go font family compiled into the binary.
func EmbeddedFace(bold bool) FaceSource {
	data, name := goregular.TTF, "goregular"
	if bold {
		data, name = gobold.TTF, "gobold"
	}
	return FaceSource{
		Name: name,
		Load: func(size float64) (font.Face, error) {
			return parseFace(data, size)
		},
	}
}

// BasicFace is the fixed 7x13 bitmap face; it never fails.
func BasicFace() FaceSource {
	return FaceSource{
		Name: "basicfont",
		Load: func(float64) (font.Face, error) {
			return basicfont.Face7x13, nil
		},
	}
}

func parseFace(data []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// FontChain is the ordered list of sources tried for a role. Large and huge
// text prefers the bold file.
func FontChain(mainPath, boldPath string, role Role) []FaceSource {
	if role == Large || role == Huge {
		return []FaceSource{FileFace(boldPath), FileFace(mainPath), EmbeddedFace(true), BasicFace()}
	}
	return []FaceSource{FileFace(mainPath), EmbeddedFace(false), BasicFace()}
}

// Fonts holds one face per role.
type Fonts struct {
	faces map[Role]font.Face
}

// NewFonts builds fonts from explicit faces, used by tests and callers that
// manage faces themselves.
func NewFonts(faces map[Role]font.Face) *Fonts {
	return &Fonts{faces: faces}
}

// LoadFonts resolves each role through its chain; the first source that
// loads wins.
func LoadFonts(sizes map[string]int, chain func(Role) []FaceSource, logger *zap.Logger) *Fonts {
	fonts := &Fonts{faces: map[Role]font.Face{}}
	for role, size := range defaultSizes {
		if s, ok := sizes[string(role)]; ok && s > 0 {
			size = float64(s)
		}
		for _, src := range chain(role) {
			face, err := src.Load(size)
			if err != nil {
				logger.Debug("Font source unavailable",
					zap.String("role", string(role)),
					zap.String("source", src.Name),
					zap.Error(err))
				continue
			}
			fonts.faces[role] = face
			logger.Debug("Loaded font",
				zap.String("role", string(role)),
				zap.String("source", src.Name),
				zap.Float64("size", size))
			break
		}
	}
	return fonts
}

// Face returns the face for role, falling back to the bitmap face.
func (f *Fonts) Face(role Role) font.Face {
	if f != nil {
		if face, ok := f.faces[role]; ok {
			return face
		}
	}
	return basicfont.Face7x13
}
