// Package sourcemap tracks where the lines of expanded shader text came from.
//
// The preprocessor stitches module bodies together from several files. A
// LineMap records, for every generated line, the file and line it was copied
// from, so compiler diagnostics can point back at the original source and a
// Source Map v3 can be written next to the expanded GLSL.
// See https://sourcemaps.info/spec.html
package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Origin is the source location of one generated line.
type Origin struct {
	File string
	Line int // 1-based
}

// LineMap records the Origin of each line of a generated text, in order.
type LineMap struct {
	origins []Origin
}

// Add appends the origin of the next generated line.
func (m *LineMap) Add(origin Origin) {
	m.origins = append(m.origins, origin)
}

// AddMap appends every line of another map, in order.
func (m *LineMap) AddMap(other *LineMap) {
	if other == nil {
		return
	}
	m.origins = append(m.origins, other.origins...)
}

// Len returns the number of generated lines recorded.
func (m *LineMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.origins)
}

// Lookup returns the origin of a 1-based generated line.
func (m *LineMap) Lookup(line int) (Origin, bool) {
	if m == nil || line < 1 || line > len(m.origins) {
		return Origin{}, false
	}
	return m.origins[line-1], true
}

// Clone returns an independent copy of the map.
func (m *LineMap) Clone() *LineMap {
	if m == nil {
		return &LineMap{}
	}
	return &LineMap{origins: append([]Origin(nil), m.origins...)}
}

// SourceMap represents a Source Map v3.
type SourceMap struct {
	Version  int      `json:"version"`
	File     string   `json:"file,omitempty"`
	Sources  []string `json:"sources"`
	Names    []string `json:"names"`
	Mappings string   `json:"mappings"`
}

// Generate builds a Source Map v3 for the generated file. Each generated
// line gets a single segment at column 0 pointing at column 0 of its origin.
func (m *LineMap) Generate(file string) *SourceMap {
	sm := &SourceMap{
		Version: 3,
		File:    file,
		Sources: []string{},
		Names:   []string{},
	}

	sourceIndex := make(map[string]int)
	var buf strings.Builder
	prevSource, prevLine := 0, 0

	for i, origin := range m.origins {
		if i > 0 {
			buf.WriteByte(';')
		}

		idx, ok := sourceIndex[origin.File]
		if !ok {
			idx = len(sm.Sources)
			sourceIndex[origin.File] = idx
			sm.Sources = append(sm.Sources, origin.File)
		}

		line := origin.Line - 1
		buf.WriteString(EncodeVLQ(0))
		buf.WriteString(EncodeVLQ(idx - prevSource))
		buf.WriteString(EncodeVLQ(line - prevLine))
		buf.WriteString(EncodeVLQ(0))
		prevSource, prevLine = idx, line
	}

	sm.Mappings = buf.String()
	return sm
}

// ToJSON returns the source map as a JSON string.
func (sm *SourceMap) ToJSON() string {
	data, _ := json.Marshal(sm)
	return string(data)
}

// ToDataURI returns the source map as a data URI for inline embedding.
func (sm *SourceMap) ToDataURI() string {
	encoded := base64.StdEncoding.EncodeToString([]byte(sm.ToJSON()))
	return "data:application/json;base64," + encoded
}

// ToComment returns the sourceMappingURL line to append to the generated
// GLSL, either inline or pointing at "<file>.map".
func (sm *SourceMap) ToComment(inline bool) string {
	if inline {
		return "//# sourceMappingURL=" + sm.ToDataURI()
	}
	return "//# sourceMappingURL=" + sm.File + ".map"
}

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

const (
	vlqShift        = 5
	vlqMask         = 1<<vlqShift - 1
	vlqContinuation = 1 << vlqShift
)

// EncodeVLQ encodes a signed integer as a base64 VLQ. The sign is carried in
// the lowest bit.
func EncodeVLQ(value int) string {
	var v uint32
	if value < 0 {
		v = uint32(-value)<<1 | 1
	} else {
		v = uint32(value) << 1
	}

	var out []byte
	for {
		digit := v & vlqMask
		v >>= vlqShift
		if v > 0 {
			digit |= vlqContinuation
		}
		out = append(out, base64Alphabet[digit])
		if v == 0 {
			return string(out)
		}
	}
}
