// Package export implements the tab-separated format used for cancellation exports.
//
// Fields are separated by a tab and rows end with '\n'. There is no quote
// character; backslash, tab, carriage return and line feed inside a field are
// escaped as \\, \t, \r and \n so every value reads back exactly as written.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	separator  = '\t'
	terminator = '\n'
)

// ErrInvalidEscape indicates a backslash followed by an unknown character.
var ErrInvalidEscape = errors.New("invalid escape sequence")

var escaper = strings.NewReplacer(`\`, `\\`, "\t", `\t`, "\n", `\n`, "\r", `\r`)

// Escape encodes a single field.
func Escape(field string) string {
	return escaper.Replace(field)
}

// Unescape reverses Escape.
func Unescape(field string) (string, error) {
	if !strings.Contains(field, `\`) {
		return field, nil
	}
	var b strings.Builder
	b.Grow(len(field))
	for i := 0; i < len(field); i++ {
		c := field[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i == len(field) {
			return "", fmt.Errorf("%w: trailing backslash", ErrInvalidEscape)
		}
		switch field[i] {
		case '\\':
			b.WriteByte('\\')
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			return "", fmt.Errorf("%w: \\%c", ErrInvalidEscape, field[i])
		}
	}
	return b.String(), nil
}

// Writer writes escaped rows.
type Writer struct {
	w    *bufio.Writer
	rows int
}

// NewWriter returns a Writer buffering into w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes one row.
func (w *Writer) Write(fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.w.WriteByte(separator); err != nil {
				return err
			}
		}
		if _, err := w.w.WriteString(Escape(field)); err != nil {
			return err
		}
	}
	if err := w.w.WriteByte(terminator); err != nil {
		return err
	}
	w.rows++
	return nil
}

// Rows returns how many rows have been written, header included.
func (w *Writer) Rows() int {
	return w.rows
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Reader reads rows written by Writer.
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Read returns the next row, or io.EOF when there are no more rows.
func (r *Reader) Read() ([]string, error) {
	line, err := r.r.ReadString(terminator)
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	line = line[:len(line)-1]

	raw := strings.Split(line, string(separator))
	fields := make([]string, len(raw))
	for i, field := range raw {
		if fields[i], err = Unescape(field); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

// ReadAll reads every remaining row.
func (r *Reader) ReadAll() ([][]string, error) {
	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}
