package sink

import (
	"bytes"
	"cmp"
	"html/template"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/tanaylab/mcbrowse/pkg/figure"
)

var pageTemplate = template.Must(template.New("figure").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { margin: 0; font-family: sans-serif; background: {{.Background}}; }
  .figure { position: relative; width: {{.Width}}px; height: {{.Height}}px; margin: 1em auto; }
  .figure svg { position: absolute; top: 0; left: 0; width: 100%; height: 100%; }
  .hit { fill: transparent; cursor: pointer; }
  #tooltip { position: absolute; display: none; pointer-events: none; white-space: pre;
    font-size: {{.TooltipFontSize}}px; background: #fff; border: 1px solid #999; padding: 4px 6px; }
</style>
</head>
<body>
<div class="figure">
{{.Chart}}
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 {{.Width}} {{.Height}}">
{{- range .Hits}}
<circle class="hit" cx="{{.X}}" cy="{{.Y}}" r="{{.R}}" data-tip="{{.Tip}}"><title>{{.Tip}}</title></circle>
{{- end}}
</svg>
<div id="tooltip"></div>
</div>
<script type="application/json" id="figure-spec">{{.Spec}}</script>
<script>
  const tip = document.getElementById('tooltip');
  document.querySelectorAll('.hit').forEach(el => {
    el.addEventListener('mousemove', e => {
      const box = el.ownerSVGElement.parentElement.getBoundingClientRect();
      tip.textContent = el.dataset.tip;
      tip.style.left = (e.clientX - box.left + 12) + 'px';
      tip.style.top = (e.clientY - box.top + 12) + 'px';
      tip.style.display = 'block';
    });
    el.addEventListener('mouseleave', () => { tip.style.display = 'none'; });
  });
</script>
</body>
</html>
`))

type hit struct {
	X, Y int
	R    float64
	Tip  string
}

type page struct {
	Title           string
	Background      string
	Width, Height   int
	TooltipFontSize float64
	Chart           template.HTML
	Hits            []hit
	Spec            figure.Spec
}

// RenderHTML produces a stand-alone page with the SVG figure, hover tooltips
// for every point and the figure's JSON description.
func RenderHTML(f *figure.Figure, opts ...Option) ([]byte, error) {
	var placed []placedPoint
	r := newChartRenderer(opts...)
	r.text = template.HTMLEscapeString
	r.placed = &placed

	s := f.Spec()
	svg, err := r.render(s, chart.SVG)
	if err != nil {
		return nil, err
	}

	hits := make([]hit, len(placed))
	for i, p := range placed {
		hits[i] = hit{
			X:   p.X,
			Y:   p.Y,
			R:   max(p.Radius, 3),
			Tip: cmp.Or(p.Point.Tooltip, p.Point.Label, p.Point.Group),
		}
	}

	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, page{
		Title:           s.Title,
		Background:      s.Style.Background,
		Width:           int(r.px(s.Width)),
		Height:          int(r.px(s.Height)),
		TooltipFontSize: r.px(s.Style.TooltipFontSize),
		// The chart bytes come from the SVG backend with every text escaped.
		Chart: template.HTML(svg),
		Hits:  hits,
		Spec:  s,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
