package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/rotisserie/eris"
)

// WriteBundle serializes the report as brotli-compressed JSON. This is the
// format used for FTP uploads and queue exports; it keeps large traces small
// without requiring an external tool to unpack.
func WriteBundle(w io.Writer, rep *Report) error {
	brw := brotli.NewWriterLevel(w, brotli.BestCompression)

	encoder := json.NewEncoder(brw)
	err := encoder.Encode(rep)
	if err != nil {
		return eris.Wrap(err, "failed to serialize report")
	}

	err = brw.Close()
	if err != nil {
		return eris.Wrap(err, "failed to finish compression")
	}

	return nil
}

// ReadBundle reads a report written by WriteBundle.
func ReadBundle(r io.Reader) (*Report, error) {
	var rep Report
	decoder := json.NewDecoder(brotli.NewReader(r))
	err := decoder.Decode(&rep)
	if err != nil {
		return nil, eris.Wrap(err, "failed to parse report bundle")
	}

	return &rep, nil
}

// EncodeBundle is a convenience wrapper around WriteBundle for callers that
// need the bundle as a byte slice.
func EncodeBundle(rep *Report) ([]byte, error) {
	buffer := bytes.Buffer{}
	err := WriteBundle(&buffer, rep)
	if err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}
