package report

import (
	"html/template"
	"os"

	"github.com/Sriram-PR/seo-auditor/pkg/models"
)

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"scoreClass": func(score int) string {
		switch {
		case score >= 80:
			return "good"
		case score >= 50:
			return "warn"
		default:
			return "bad"
		}
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>SEO report: {{.Domain}}</title>
<style>
body{font-family:sans-serif;margin:2em;color:#222}
table{border-collapse:collapse;width:100%}
th,td{border:1px solid #ddd;padding:4px 8px;text-align:left;vertical-align:top}
.good{color:#2e7d32}.warn{color:#ef6c00}.bad{color:#c62828}
.stats span{display:inline-block;margin-right:2em}
</style>
</head>
<body>
<h1>SEO report: {{.Domain}}</h1>
<p>Sitemap: {{.SitemapURL}}<br>Run: {{.ID}}<br>Started: {{.StartedAt.Format "2006-01-02 15:04:05"}}</p>
<div class="stats">
<span>Pages: {{.Stats.Total}}</span>
<span>Average score: {{.Stats.AvgScore}}/100</span>
<span>Missing title: {{.Stats.MissingTitle}}</span>
<span>Missing description: {{.Stats.MissingDesc}}</span>
<span>Missing OG image: {{.Stats.MissingOG}}</span>
<span>Errors: {{.Stats.Errors}}</span>
</div>
{{if .LanguageStats}}<h2>Languages</h2>
<ul>{{range $lang, $count := .LanguageStats}}<li>{{$lang}}: {{$count}}</li>{{end}}</ul>{{end}}
{{with .DuplicateTitles}}<h2>Duplicate titles</h2>
<ul>{{range .}}<li>{{.Value}} ({{.Count}}){{range .URLs}}<br>{{.}}{{end}}</li>{{end}}</ul>{{end}}
{{with .DuplicateDescriptions}}<h2>Duplicate descriptions</h2>
<ul>{{range .}}<li>{{.Value}} ({{.Count}}){{range .URLs}}<br>{{.}}{{end}}</li>{{end}}</ul>{{end}}
{{with .DuplicateContent}}<h2>Duplicate page content</h2>
<ul>{{range .}}<li>{{.Count}} pages{{range .URLs}}<br>{{.}}{{end}}</li>{{end}}</ul>{{end}}
{{with .MissingTranslations}}<h2>Missing translations</h2>
<table><tr><th>Source</th><th>Language</th><th>Missing</th><th>Expected URL</th></tr>
{{range .}}<tr><td>{{.SourceURL}}</td><td>{{.SourceLang}}</td><td>{{.MissingLang}}</td><td>{{.ExpectedURL}}</td></tr>{{end}}
</table>{{end}}
<h2>Pages</h2>
<table>
<tr><th>URL</th><th>Language</th><th>Status</th><th>Title</th><th>Score</th><th>Issues</th></tr>
{{range .Pages}}<tr>
<td><a href="{{.URL}}">{{.URL}}</a></td>
<td>{{.Language}}</td>
<td>{{.StatusCode}}</td>
<td>{{.Title}}</td>
<td class="{{scoreClass .Score}}">{{.Score}}</td>
<td>{{range .Issues}}{{.}}<br>{{end}}</td>
</tr>{{end}}
</table>
</body>
</html>
`))

func writeHTML(f *os.File, run *models.AnalysisRun) error {
	return htmlReport.Execute(f, run)
}
