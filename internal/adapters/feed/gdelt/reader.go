package gdelt

import (
	"archive/zip"
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	perr "driftwatch/internal/platform/errors"
)

const (
	maxScanTokenSize = 4 * 1024 * 1024
	maxArchiveBytes  = 512 * 1024 * 1024
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Reader streams parsed rows from an export zip archive.
// The zip format needs random access, so the archive is buffered in memory;
// a 15 minute export is small enough for that to be fine
type Reader struct {
	sc     *bufio.Scanner
	closer io.Closer
	err    error
	rows   int
	bytes  int64
}

// NewReader opens the single CSV member of the export zip carried by r.
// r is fully consumed and closed before NewReader returns
func NewReader(r io.ReadCloser) (*Reader, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxArchiveBytes))
	cerr := r.Close()
	if err != nil {
		return nil, perr.Unavailablef("gdelt: read archive: %v", err)
	}
	if cerr != nil {
		return nil, cerr
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, perr.Corruptf("gdelt: bad zip archive: %v", err)
	}
	if len(zr.File) == 0 {
		return nil, perr.Corruptf("gdelt: empty zip archive")
	}
	member, err := zr.File[0].Open()
	if err != nil {
		return nil, perr.Corruptf("gdelt: open zip member: %v", err)
	}
	sc := bufio.NewScanner(member)
	sc.Buffer(make([]byte, 64*1024), maxScanTokenSize)
	return &Reader{sc: sc, closer: member}, nil
}

// Next reads the next row; returns io.EOF when done. Malformed rows surface
// as validation errors so the caller can count and skip them
func (rd *Reader) Next() (Row, error) {
	if rd.err != nil {
		return Row{}, rd.err
	}
	if !rd.sc.Scan() {
		if err := rd.sc.Err(); err != nil {
			rd.err = perr.Corruptf("gdelt: scan: %v", err)
			return Row{}, rd.err
		}
		rd.err = io.EOF
		return Row{}, io.EOF
	}
	line := rd.sc.Text()
	rd.bytes += int64(len(line) + 1)

	row, err := ParseRow(line)
	if err != nil {
		return Row{}, err
	}
	rd.rows++
	return row, nil
}

// Close closes the underlying zip member
func (rd *Reader) Close() error {
	if rd.closer == nil {
		return nil
	}
	return rd.closer.Close()
}

// Stats returns the number of valid rows parsed and bytes consumed so far
func (rd *Reader) Stats() (rows int, bytes int64) { return rd.rows, rd.bytes }

// ParseRow splits one tab separated export record and validates the columns
// the pipeline consumes. Every failure mode is a validation coded error
func ParseRow(line string) (Row, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < minColumns {
		return Row{}, perr.Validationf("gdelt: row has %d columns, need %d", len(fields), minColumns)
	}
	mentions, err := strconv.ParseInt(strings.TrimSpace(fields[colNumMentions]), 10, 64)
	if err != nil {
		return Row{}, perr.Validationf("gdelt: bad mentions column: %v", err)
	}
	row := Row{
		GlobalEventID: strings.TrimSpace(fields[colGlobalEventID]),
		Day:           strings.TrimSpace(fields[colDay]),
		Actor1Name:    strings.TrimSpace(fields[colActor1Name]),
		Actor2Name:    strings.TrimSpace(fields[colActor2Name]),
		NumMentions:   mentions,
	}
	if err := validate.Struct(row); err != nil {
		return Row{}, perr.Validationf("gdelt: row failed schema: %v", err)
	}
	return row, nil
}
