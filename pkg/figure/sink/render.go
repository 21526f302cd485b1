package sink

import (
	"fmt"

	"github.com/tanaylab/mcbrowse/pkg/errors"
	"github.com/tanaylab/mcbrowse/pkg/figure"
)

// Output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
	FormatHTML = "html"
)

// Formats lists every output format in a stable order.
var Formats = []string{FormatSVG, FormatPNG, FormatPDF, FormatJSON, FormatHTML}

var contentTypes = map[string]string{
	FormatSVG:  "image/svg+xml",
	FormatPNG:  "image/png",
	FormatPDF:  "application/pdf",
	FormatJSON: "application/json",
	FormatHTML: "text/html; charset=utf-8",
}

// ContentType returns the MIME type of format, or "" for unknown formats.
func ContentType(format string) string { return contentTypes[format] }

// Render draws f in the named format. Chart options apply to every format
// except JSON.
func Render(f *figure.Figure, format string, opts ...Option) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatSVG:
		data, err = RenderSVG(f, opts...)
	case FormatPNG:
		data, err = RenderPNG(f, opts...)
	case FormatPDF:
		data, err = RenderPDF(f, opts...)
	case FormatJSON:
		data, err = RenderJSON(f)
	case FormatHTML:
		data, err = RenderHTML(f, opts...)
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unknown output format %q", format)
	}
	if err != nil {
		return nil, errors.WithStage(errors.StageExport, fmt.Errorf("render %s: %w", format, err))
	}
	return data, nil
}
