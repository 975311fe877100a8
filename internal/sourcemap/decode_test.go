package sourcemap

import (
	"errors"
	"strings"
)

// mapping is one decoded segment of a mappings string.
type mapping struct {
	GenLine  int // 0-indexed
	GenCol   int
	SrcIndex int
	SrcLine  int // 0-indexed
	SrcCol   int
}

// decodeMappings decodes a VLQ mappings string. Segments with a name field
// are accepted; the name is ignored.
func decodeMappings(mappings string) ([]mapping, error) {
	if mappings == "" {
		return nil, nil
	}

	var result []mapping
	srcIndex, srcLine, srcCol := 0, 0, 0

	for genLine, line := range strings.Split(mappings, ";") {
		genCol := 0
		for _, segment := range strings.Split(line, ",") {
			if segment == "" {
				continue
			}

			var values []int
			for pos := 0; pos < len(segment); {
				value, n := decodeVLQ(segment[pos:])
				if n == 0 {
					return nil, errors.New("invalid VLQ segment " + segment)
				}
				values = append(values, value)
				pos += n
			}
			if len(values) != 1 && len(values) != 4 && len(values) != 5 {
				return nil, errors.New("malformed segment " + segment)
			}

			genCol += values[0]
			m := mapping{GenLine: genLine, GenCol: genCol}
			if len(values) >= 4 {
				srcIndex += values[1]
				srcLine += values[2]
				srcCol += values[3]
				m.SrcIndex, m.SrcLine, m.SrcCol = srcIndex, srcLine, srcCol
			}
			result = append(result, m)
		}
	}

	return result, nil
}

// decodeVLQ decodes one VLQ value from the start of input and returns it with
// the number of bytes consumed. It returns (0, 0) for empty, invalid or
// truncated input.
func decodeVLQ(input string) (int, int) {
	var v uint32
	var shift uint32

	for i := 0; i < len(input); i++ {
		digit := strings.IndexByte(base64Alphabet, input[i])
		if digit < 0 {
			return 0, 0
		}

		v |= uint32(digit&vlqMask) << shift
		shift += vlqShift

		if digit&vlqContinuation == 0 {
			if v&1 != 0 {
				return -int(v >> 1), i + 1
			}
			return int(v >> 1), i + 1
		}
	}

	return 0, 0
}
