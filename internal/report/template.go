package report

// DashboardTemplate is the HTML template of the dashboard page.
// Styles and the progress script are served from /static/.
const DashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}{{with .Analysis}} | {{.Company.Ticker}}{{end}}</title>
<link rel="stylesheet" href="/static/dashboard.css">
<script src="/static/dashboard.js" defer></script>
</head>
<body>
<aside class="sidebar">
  <h2>Analysis Settings</h2>
  <form id="settings" method="get" action="/">
    <label for="sector">Sector</label>
    <select id="sector" name="sector" onchange="this.form.submit()">
      <option value="All"{{if or (eq .Sector "") (eq .Sector "All")}} selected{{end}}>All</option>
      {{- range .Sectors}}
      <option value="{{.}}"{{if eq . $.Sector}} selected{{end}}>{{.}}</option>
      {{- end}}
    </select>

    <label for="ticker">Company</label>
    <select id="ticker" name="ticker">
      {{- range .Companies}}
      <option value="{{.Ticker}}"{{if eq .Ticker $.Selected}} selected{{end}}>{{.Label}}</option>
      {{- end}}
    </select>

    <label for="days">Lookback (days)</label>
    <input id="days" name="days" type="number" min="1" max="30" value="{{.LookbackDays}}">

    <button type="submit" name="analyze" value="1">Analyze</button>
  </form>

  {{- if .NeedsKey}}
  <form class="key-prompt" method="post" action="/settings/news-key">
    <label for="news_key">NewsAPI key</label>
    <input id="news_key" name="news_key" type="password" autocomplete="off" placeholder="Enter your NewsAPI key">
    <button type="submit">Save key</button>
    <p class="muted">Kept in memory only.</p>
  </form>
  {{- end}}

  <p class="muted">Market: {{.MarketStatus}}</p>
  <p id="progress" class="muted"></p>
</aside>

<main>
  <header>
    <h1>{{.Title}}</h1>
    <p class="muted">{{.GeneratedAt}}</p>
  </header>

  {{- if .Error}}
  <div class="error">{{.Error}}</div>
  {{- end}}

  {{- with .Analysis}}
  <section class="advisory">
    <h2>{{.Company.Name}} ({{.Company.Ticker}})</h2>
    <div class="advice advice-{{.Advisory.Color}}">{{.Advisory.Label}}</div>
    {{- if $.GaugeSVG}}<div class="gauge">{{$.GaugeSVG}}</div>{{end}}
  </section>

  <section class="metrics">
    <div class="metric"><span class="metric-label">Average Sentiment</span><span class="metric-value">{{.Metrics.AvgSentiment}}</span></div>
    <div class="metric"><span class="metric-label">Headlines Analyzed</span><span class="metric-value">{{.Metrics.HeadlinesAnalyzed}}</span></div>
    {{- if .Metrics.Performance}}
    <div class="metric"><span class="metric-label">Stock Performance</span><span class="metric-value">{{.Metrics.Performance}}</span></div>
    {{- end}}
  </section>

  {{- range $.Sources}}
  {{- if degraded .}}
  <div class="warning">{{.Source}}: {{.State}}{{with .Message}} ({{.}}){{end}}</div>
  {{- end}}
  {{- end}}

  <section class="chart">
    {{- if $.ChartSVG}}
    {{$.ChartSVG}}
    {{- else}}
    <div class="warning">{{.ChartNotice}}</div>
    {{- end}}
  </section>

  <section class="headlines">
    <h2>Recent Headlines</h2>
    {{- if .Table}}
    <table>
      <thead><tr><th>Date</th><th>Headline</th><th>Sentiment</th></tr></thead>
      <tbody>
      {{- range .Table}}
        <tr><td>{{.Date}}</td><td>{{.Headline}}</td><td class="num">{{score .Sentiment}}</td></tr>
      {{- end}}
      </tbody>
    </table>
    {{- else}}
    <div class="info">{{.HeadlineNotice}}</div>
    {{- end}}
  </section>
  {{- end}}
</main>
</body>
</html>
`
