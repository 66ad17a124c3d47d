package helpers

// Joiner accumulates the strings and byte slices the printer (component G)
// emits per statement and concatenates them once, at Done, instead of
// repeatedly growing one shared buffer. A chunk's output can run to many
// thousands of small Add* calls (one or more per printed statement), so
// paying for the final allocation once - after the total length is known -
// beats the repeated-realloc cost of appending directly to a []byte.
type Joiner struct {
	chunks []joinerChunk
	length uint32
}

// joinerChunk holds either a string or a []byte contribution; storing both
// without converting one to the other avoids an extra copy for the (common)
// case where the caller already has the right representation. isBytes
// disambiguates an AddBytes(nil) or AddString("") call from one another,
// both of which would otherwise look like the zero value.
type joinerChunk struct {
	str     string
	data    []byte
	isBytes bool
}

func (j *Joiner) AddString(s string) {
	j.chunks = append(j.chunks, joinerChunk{str: s})
	j.length += uint32(len(s))
}

func (j *Joiner) AddBytes(b []byte) {
	j.chunks = append(j.chunks, joinerChunk{data: b, isBytes: true})
	j.length += uint32(len(b))
}

// Done concatenates every chunk added so far into one allocation.
func (j *Joiner) Done() []byte {
	if len(j.chunks) == 1 && j.chunks[0].isBytes {
		// Nothing to concatenate - hand back the single []byte as-is.
		return j.chunks[0].data
	}
	out := make([]byte, 0, j.length)
	for _, c := range j.chunks {
		if c.isBytes {
			out = append(out, c.data...)
		} else {
			out = append(out, c.str...)
		}
	}
	return out
}
