package backend

import (
	"bytes"

	"github.com/klauspost/compress/gzip"
)

const defaultCompressionThreshold = 1024

// Compressor conditionally gzips outbound payloads. Payloads at or below the
// threshold ship uncompressed; the overhead of a gzip envelope outweighs the
// savings on small bodies.
type Compressor struct {
	Enabled   bool
	Threshold int
}

// NewCompressor returns a compressor with the default 1 KiB threshold when
// threshold is not positive.
func NewCompressor(enabled bool, threshold int) Compressor {
	if threshold <= 0 {
		threshold = defaultCompressionThreshold
	}
	return Compressor{Enabled: enabled, Threshold: threshold}
}

// MaybeCompress returns the payload, gzipped when compression is enabled and
// the payload exceeds the threshold, together with the Content-Encoding value
// to send ("gzip" or empty). On a compression failure the original payload is
// returned unencoded; a larger request beats a lost batch.
func (c Compressor) MaybeCompress(payload []byte) ([]byte, string) {
	if !c.Enabled || len(payload) <= c.Threshold {
		return payload, ""
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		zw.Close()
		return payload, ""
	}
	if err := zw.Close(); err != nil {
		return payload, ""
	}
	return buf.Bytes(), "gzip"
}
