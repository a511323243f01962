// Package link defines the camera link records deadcam checks and loads them
// from CSV input.
package link

import "strings"

// StreamType labels the kind of endpoint a record points at.
type StreamType string

const (
	StreamJPEG  StreamType = "JPEG"
	StreamHLS   StreamType = "HLS"
	StreamRTSP  StreamType = "RTSP"
	StreamMJPEG StreamType = "MJPEG"
	StreamOther StreamType = "OTHER"
)

// DefaultStreamType applies to every row when the input has no Stream Type column.
const DefaultStreamType = StreamHLS

// ParseStreamType maps a free-form label to a StreamType. Matching is
// case-insensitive and ignores surrounding whitespace. "JPG" is accepted as
// JPEG; anything unrecognized, including an empty cell, is OTHER.
func ParseStreamType(label string) StreamType {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "JPEG", "JPG":
		return StreamJPEG
	case "HLS":
		return StreamHLS
	case "RTSP":
		return StreamRTSP
	case "MJPEG":
		return StreamMJPEG
	default:
		return StreamOther
	}
}

// Record is a single input row. It is treated as immutable once loaded;
// probe outcomes are carried by result.Verdict, never written back here.
type Record struct {
	URL           string     // Identity of the record, compared exactly
	Category      string     // Category column, empty when absent
	StreamType    StreamType // Parsed stream type
	RawStreamType string     // Stream Type cell as it appeared in the input
	Fields        []string   // Full original row, aligned with Table.Header
}

// Table is a loaded input file.
type Table struct {
	Header  []string
	Records []Record
}

// Column returns the index of name in the header, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Strategy selects how a record is probed.
type Strategy string

const (
	StrategyHTTP   Strategy = "http"   // single HEAD request
	StrategyStream Strategy = "stream" // open and read in an isolated worker
)
