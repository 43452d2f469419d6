//go:build cgo
// +build cgo

package controller

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
)

// renderPDFToPNGs renders up to maxPages pages of the PDF as PNG files in
// outDir and returns the page sizes in centimeters plus the file paths.
func renderPDFToPNGs(pdfPath, outDir string, dpi, maxPages int) (sizes [][2]float64, pngPaths []string, err error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n > maxPages {
		n = maxPages
	}
	for i := 0; i < n; i++ {
		bound, err := doc.Bound(i)
		if err != nil {
			return nil, nil, fmt.Errorf("page %d bounds: %w", i+1, err)
		}
		// bounds are in points (1/72 inch)
		wcm := float64(bound.Dx()) / 72.0 * 2.54
		hcm := float64(bound.Dy()) / 72.0 * 2.54

		img, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			return nil, nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		path := filepath.Join(outDir, fmt.Sprintf("page%d.png", i+1))
		if err := savePNG(path, img); err != nil {
			return nil, nil, err
		}
		sizes = append(sizes, [2]float64{wcm, hcm})
		pngPaths = append(pngPaths, path)
	}
	return sizes, pngPaths, nil
}

func savePNG(path string, m image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, m)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
