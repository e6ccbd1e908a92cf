// Package export serializes surface snapshots into transportable documents,
// by wrapping github.com/jung-kurt/gofpdf for PDF output.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"
)

const imageName = "canvas"

// Options tunes the generated PDF.
type Options struct {
	Compress bool
	Title    string
	Creator  string
}

// DefaultOptions returns compressed output without metadata.
func DefaultOptions() Options {
	return Options{Compress: true}
}

// PNG encodes img as a PNG stream.
func PNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// PDF writes a single-page document whose page is exactly the image's pixel
// size in points, with the image drawn full-bleed at the page origin.
func PDF(w io.Writer, img image.Image, opts Options) error {
	bounds := img.Bounds()
	if bounds.Empty() {
		return fmt.Errorf("export pdf: empty image")
	}
	width, height := float64(bounds.Dx()), float64(bounds.Dy())

	var raster bytes.Buffer
	if err := PNG(&raster, img); err != nil {
		return err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetCompression(opts.Compress)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	if opts.Creator != "" {
		pdf.SetCreator(opts.Creator, true)
	}
	pdf.AddPage()

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imageName, imageOpts, &raster)
	pdf.ImageOptions(imageName, 0, 0, width, height, false, imageOpts, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export pdf: %w", err)
	}
	return nil
}
