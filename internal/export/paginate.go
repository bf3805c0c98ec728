// Package export turns a project overview and its full-page screenshot into
// a downloadable multi-page PDF. The pagination math is kept separate from
// the PDF assembly so it stays a pure, testable function.
package export

// PageSlice positions one page of a tall image inside a fixed-height page.
// OffsetY is the vertical distance (in page units) between the top of the
// image and the top of this page: drawing the full image at y = -OffsetY
// exposes exactly this page's worth of content.
type PageSlice struct {
	Index   int
	OffsetY float64
}

// Paginate slices an image of imgW x imgH (any unit) into pages of
// pageW x pageH. The image is scaled to fill the page width; pages are
// emitted while the remaining scaled height exceeds margin, which yields
// ceil(scaledHeight/pageH) pages when margin is smaller than the final
// remainder. Offsets advance by exactly one page height, so consecutive
// pages share no content and leave no gap; only the last page may carry
// unused margin.
func Paginate(imgW, imgH, pageW, pageH, margin float64) []PageSlice {
	if imgW <= 0 || imgH <= 0 || pageW <= 0 || pageH <= 0 {
		return nil
	}
	scaledH := imgH * (pageW / imgW)

	slices := []PageSlice{{Index: 0, OffsetY: 0}}
	remaining := scaledH - pageH
	offset := 0.0
	for remaining > margin {
		offset += pageH
		slices = append(slices, PageSlice{Index: len(slices), OffsetY: offset})
		remaining -= pageH
	}
	return slices
}

// ScaledHeight returns the image height after scaling to fill pageW.
func ScaledHeight(imgW, imgH, pageW float64) float64 {
	if imgW <= 0 {
		return 0
	}
	return imgH * (pageW / imgW)
}
