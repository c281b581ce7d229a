package contenthub

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var pdfMagic = []byte("%PDF-")

// sniffPDF rejects uploads whose bytes do not start with the PDF header.
func sniffPDF(_ string, data []byte) error {
	if !bytes.HasPrefix(data, pdfMagic) {
		return &ValidationError{Field: "file", Reason: "is not a PDF document"}
	}
	return nil
}

// sniffImage checks that raster uploads decode as an image and that SVG uploads contain an svg element.
func sniffImage(ext string, data []byte) error {
	if ext == ".svg" {
		if !bytes.Contains(bytes.ToLower(data), []byte("<svg")) {
			return &ValidationError{Field: "file", Reason: "is not an SVG image"}
		}
		return nil
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return &ValidationError{Field: "file", Reason: "is not a readable image: " + err.Error()}
	}
	return nil
}
