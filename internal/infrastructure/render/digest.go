package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/charmbracelet/glamour"

	"DogDigest/internal/domain"
)

// DescriptionLimit caps the description cell of the listings table.
const DescriptionLimit = 600

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"join":     func(parts []string) string { return strings.Join(parts, ", ") },
	"clip":     func(s string) string { return clip(s, DescriptionLimit) },
	"stamp":    stamp,
	"firstURL": firstURL,
}).Parse(digestHTML))

const digestHTML = `<div>
<h2>Top picks</h2>
{{- if .TopPicks}}
<ol class="top-picks">
{{- range .TopPicks}}
<li data-rank="{{.Rank}}"><strong>{{if .Listing.URL}}<a href="{{.Listing.URL}}">{{.Listing.Name}}</a>{{else}}{{.Listing.Name}}{{end}}</strong> ({{join .Listing.Breeds}}, {{.Listing.Age}}, {{.Listing.Size}})
{{- with firstURL .Listing.PhotoURLs}}<br><img src="{{.}}" alt="photo" width="240">{{end}}
<p>{{.Rationale}}</p></li>
{{- end}}
</ol>
{{- else}}
<p>No top picks this run.</p>
{{- end}}
<h2>All listings</h2>
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse:collapse;font-family:Arial,Helvetica,sans-serif;font-size:14px;line-height:1.3;width:100%;">
<thead style="background:#f5f5f5;">
<tr><th>Name</th><th>Size</th><th>Breeds</th><th>Age</th><th>Gender</th><th>Description</th><th>Videos</th><th>Contact Email</th><th>Contact Phone</th><th>Published At</th><th>URL</th></tr>
</thead>
<tbody>
{{- range .Listings}}
<tr><td>{{.Name}}</td><td>{{.Size}}</td><td>{{join .Breeds}}</td><td>{{.Age}}</td><td>{{.Sex}}</td><td>{{clip .Description}}</td><td>{{range $i, $v := .VideoURLs}}{{if $i}}, {{end}}<a href="{{$v}}">video</a>{{end}}</td><td>{{.ContactEmail}}</td><td>{{.ContactPhone}}</td><td>{{stamp .PublishedAt}}</td><td>{{if .URL}}<a href="{{.URL}}">Link</a>{{end}}</td></tr>
{{- else}}
<tr><td colspan="11">No matching dogs in this window.</td></tr>
{{- end}}
</tbody>
</table>
<p>Generated {{stamp .GeneratedAt}}</p>
</div>
`

// HTML renders the digest body.
func HTML(d domain.Digest) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

// Subject builds the e-mail subject line.
func Subject(d domain.Digest, window time.Duration) string {
	subject := fmt.Sprintf("Dog Digest: %d matches in last %s (run @ %s)",
		len(d.Listings), windowLabel(window), d.GeneratedAt.UTC().Format(time.RFC3339))
	if n := len(d.TopPicks); n > 0 {
		subject += fmt.Sprintf(", %d top picks", n)
	}
	return subject
}

// Markdown converts rendered HTML into the plain-text alternative.
func Markdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.Table())
	out, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert digest to markdown: %w", err)
	}
	return out, nil
}

// Preview renders the digest for a terminal. style is a glamour style name or "auto".
func Preview(d domain.Digest, style string, width int) (string, error) {
	body, err := HTML(d)
	if err != nil {
		return "", err
	}
	markdown, err := Markdown(body)
	if err != nil {
		return "", err
	}
	if width <= 0 {
		width = 100
	}

	styleOpt := glamour.WithStylePath(style)
	if style == "" || style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	renderer, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("create terminal renderer: %w", err)
	}
	out, err := renderer.Render("# " + Subject(d, 0) + "\n\n" + markdown)
	if err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	return out, nil
}

func clip(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func firstURL(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

func windowLabel(window time.Duration) string {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if window%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(window/time.Hour))
	}
	return window.String()
}
