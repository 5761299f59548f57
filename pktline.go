package packway

import (
	"fmt"
	"io"
)

// FlushPkt is the pkt-line flush marker.
const FlushPkt = "0000"

// Banner returns the framed service announcement that precedes a smart ref
// advertisement: a four digit lowercase hex length covering the length
// prefix and the text, the text itself, then a flush marker.
func Banner(svc Service) string {
	text := "# service=" + string(svc) + "\n"
	return fmt.Sprintf("%04x%s%s", len(text)+4, text, FlushPkt)
}

// WriteBanner writes Banner(svc) to w.
func WriteBanner(w io.Writer, svc Service) error {
	if _, err := io.WriteString(w, Banner(svc)); err != nil {
		return fmt.Errorf("write banner: %w", err)
	}
	return nil
}
