package scraper

import (
	"fmt"
	"math"
	"strconv"
)

// pbTail is the fixed feature-flag portion of the pb= viewport parameter.
// Vendor-opaque: the segments select the map-search response shape and are
// carried verbatim. Only the three leading slots (scale, lng, lat) and the
// !4f zoom field are computed.
const pbTail = "!7i20!10b1" +
	"!12m15!1m2!18b1!30b1!17m4!1e1!1e0!3e1!3e0!20m5!1e0!2e3!3b0!5e2!6b1!26b1" +
	"!19m4!2m3!1i320!2i120!4i8" +
	"!20m32!3m1!2i9!6m3!1m2!1i360!2i256" +
	"!7m24!1m3!1e1!2b0!3e3!1m3!1e2!2b1!3e2!1m3!1e2!2b0!3e3" +
	"!1m3!1e8!2b0!3e3!1m3!1e10!2b0!3e3!1m3!1e10!2b1!3e2!9b0"

// BuildPB constructs the pb= parameter describing the map viewport for a
// tbm=map search request.
func BuildPB(lat, lng float64, zoom int) string {
	return fmt.Sprintf("!4m8!1m3!1d%s!2d%s!3d%s!3m2!1i415!2i608!4f%d%s",
		formatNum(ZoomScale(zoom)),
		formatNum(lng),
		formatNum(lat),
		zoom,
		pbTail,
	)
}

// ZoomScale converts a zoom level to the viewport distance scale carried
// in the !1d slot.
func ZoomScale(zoom int) float64 {
	return 156543.03392 * 2 / math.Pow(2, float64(zoom))
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
