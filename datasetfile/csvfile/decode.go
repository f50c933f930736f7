package csvfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const readBufferSize = 64 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var encodingAliases = map[string]string{
	"latin-1": "latin1",
	"latin_1": "latin1",
	"utf_16":  "utf-16",
	"cp1252":  "windows-1252",
}

// runeSource yields decoded runes and tracks the byte offset of the input consumed.
// For UTF-8 and ASCII the input is checked strictly and the first malformed byte is
// reported as a DecodingError. Other encodings are transcoded through x/text one
// rune at a time, and input the decoder replaces with U+FFFD is reported the same way.
type runeSource struct {
	br     *bufio.Reader
	offset int64
	strict bool
	ascii  bool

	tr *transcoder
}

// CheckEncoding reports whether label names an encoding the reader supports.
func CheckEncoding(label string) error {
	_, err := newRuneSource(bytes.NewReader(nil), label)
	return err
}

func newRuneSource(r io.Reader, label string) (*runeSource, error) {
	name := strings.ToLower(strings.TrimSpace(label))
	if alias, ok := encodingAliases[name]; ok {
		name = alias
	}

	switch name {
	case "", "utf-8", "utf8", "utf_8", "utf-8-sig":
		src := &runeSource{br: bufio.NewReaderSize(r, readBufferSize), strict: true}
		if err := src.skipBOM(); err != nil {
			return nil, err
		}
		return src, nil
	case "ascii", "us-ascii":
		return &runeSource{br: bufio.NewReaderSize(r, readBufferSize), strict: true, ascii: true}, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding '%s'", label)
	}
	return &runeSource{tr: newTranscoder(r, enc)}, nil
}

func (s *runeSource) skipBOM() error {
	head, err := s.br.Peek(len(utf8BOM))
	if err != nil && err != io.EOF {
		return err
	}
	if bytes.Equal(head, utf8BOM) {
		n, _ := s.br.Discard(len(utf8BOM))
		s.offset += int64(n)
	}
	return nil
}

func (s *runeSource) next() (rune, error) {
	if s.tr != nil {
		return s.tr.next()
	}

	r, size, err := s.br.ReadRune()
	if err != nil {
		return 0, err
	}
	if s.strict {
		if r == utf8.RuneError && size == 1 {
			return 0, newDecodingError(s.offset)
		}
		if s.ascii && r >= utf8.RuneSelf {
			return 0, newDecodingError(s.offset)
		}
	}
	s.offset += int64(size)
	return r, nil
}

// transcoder decodes input through an x/text decoder while keeping track of the
// input bytes behind every decoded rune.
type transcoder struct {
	r       io.Reader
	decoder transform.Transformer
	// genuine lists the input byte sequences that stand for a real U+FFFD.
	genuine [][]byte

	src   []byte
	start int
	eof   bool

	offset  int64
	pending []rune
	dst     [4 * utf8.UTFMax]byte
}

func newTranscoder(r io.Reader, enc encoding.Encoding) *transcoder {
	genuine := [][]byte{{0xEF, 0xBF, 0xBD}, {0xFD, 0xFF}, {0xFF, 0xFD}}
	if encoded, err := enc.NewEncoder().Bytes([]byte("\uFFFD")); err == nil {
		genuine = append(genuine, encoded)
	}

	return &transcoder{
		r:       r,
		decoder: unicode.BOMOverride(enc.NewDecoder()),
		genuine: genuine,
		src:     make([]byte, 0, readBufferSize),
	}
}

func (t *transcoder) next() (rune, error) {
	if len(t.pending) == 0 {
		if err := t.decode(); err != nil {
			return 0, err
		}
	}
	r := t.pending[0]
	t.pending = t.pending[1:]
	return r, nil
}

// decode fills pending with the output of the smallest input sequence the decoder
// turns into text. The destination grows one byte at a time, so a call never
// yields more than one such sequence and the offset stays exact.
func (t *transcoder) decode() error {
	for {
		src := t.src[t.start:]
		if len(src) == 0 && t.eof {
			return io.EOF
		}

		needInput := false
		for n := 1; n <= len(t.dst); n++ {
			nDst, nSrc, err := t.decoder.Transform(t.dst[:n], src, t.eof)
			if nDst == 0 && nSrc > 0 {
				// Byte order marks and shift sequences produce no output.
				t.consume(nSrc)
				src = t.src[t.start:]
				if len(src) == 0 && t.eof {
					return io.EOF
				}
				n = 0
				continue
			}
			if nDst > 0 {
				return t.accept(src[:nSrc], t.dst[:nDst])
			}

			switch {
			case errors.Is(err, transform.ErrShortDst):
				continue
			case err == nil, errors.Is(err, transform.ErrShortSrc):
				needInput = true
			default:
				return newDecodingError(t.offset)
			}
			break
		}

		if !needInput || t.eof {
			return newDecodingError(t.offset)
		}
		if err := t.fill(); err != nil {
			return err
		}
	}
}

func (t *transcoder) accept(input, output []byte) error {
	start := t.offset
	t.consume(len(input))

	text := string(output)
	if strings.ContainsRune(text, utf8.RuneError) && !t.isGenuineReplacement(input, text) {
		return newDecodingError(start)
	}
	t.pending = append(t.pending[:0], []rune(text)...)
	return nil
}

func (t *transcoder) isGenuineReplacement(input []byte, text string) bool {
	if text != string(utf8.RuneError) {
		return false
	}
	for _, seq := range t.genuine {
		if bytes.Equal(input, seq) {
			return true
		}
	}
	return false
}

func (t *transcoder) consume(n int) {
	t.start += n
	t.offset += int64(n)
}

func (t *transcoder) fill() error {
	if t.start > 0 {
		t.src = append(t.src[:0], t.src[t.start:]...)
		t.start = 0
	}
	if len(t.src) == cap(t.src) {
		grown := make([]byte, len(t.src), 2*cap(t.src))
		copy(grown, t.src)
		t.src = grown
	}

	n, err := t.r.Read(t.src[len(t.src):cap(t.src)])
	t.src = t.src[:len(t.src)+n]
	if errors.Is(err, io.EOF) {
		t.eof = true
		return nil
	}
	return err
}
