package view

import (
	"bytes"
	"html/template"
)

// DefaultRedirectDelayMillis is how long the interstitial waits before redirecting.
const DefaultRedirectDelayMillis = 1500

// RedirectPageData provides the dynamic fields required by the interstitial template.
type RedirectPageData struct {
	Code        string
	Destination string
	// ServiceURL is the public base URL, linked as "shorten your own".
	ServiceURL  string
	DelayMillis int
}

var redirectPageTmpl = template.Must(template.New("redirect_page").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<meta name="robots" content="noindex" />
	<title>Redirecting...</title>
	<style>
		:root {
			--bg: #090a0f;
			--card: rgba(255, 255, 255, 0.05);
			--border: rgba(255, 255, 255, 0.15);
			--text: #e7ecff;
			--muted: #a1acc5;
			--accent: #7dd3fc;
			--accent-strong: #38bdf8;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			align-items: center;
			justify-content: center;
			background: radial-gradient(circle at 20% 20%, #111827, #030712 60%);
			color: var(--text);
		}
		.card {
			background: var(--card);
			border: 1px solid var(--border);
			border-radius: 18px;
			padding: 32px;
			width: min(520px, 92vw);
			box-shadow: 0 45px 100px rgba(0,0,0,0.35);
		}
		h1 { font-size: 1.5rem; margin-bottom: 6px; }
		p { color: var(--muted); margin-top: 0; }
		.destination {
			margin: 24px 0;
			padding: 18px;
			border-radius: 14px;
			background: rgba(125, 211, 252, 0.07);
			border: 1px solid rgba(125, 211, 252, 0.25);
			word-break: break-all;
		}
		.actions { display: flex; align-items: center; gap: 12px; flex-wrap: wrap; }
		a.button {
			display: inline-flex;
			align-items: center;
			padding: 0 28px;
			height: 48px;
			border-radius: 999px;
			background: linear-gradient(120deg, var(--accent), var(--accent-strong));
			color: #050708;
			font-weight: 600;
			text-decoration: none;
		}
		a.secondary { color: var(--accent); }
	</style>
</head>
<body>
	<div class="card">
		<h1>Redirecting you now</h1>
		<p>Short link <strong>/{{.Code}}</strong> points to:</p>
		<div class="destination">{{.Destination}}</div>
		<div class="actions">
			<a id="skip" class="button" href="{{.Destination}}">Skip and go now</a>
			{{if .ServiceURL}}<a class="secondary" href="{{.ServiceURL}}">Shorten your own link</a>{{end}}
		</div>
	</div>
	<script>
		setTimeout(function () {
			window.location.replace({{.Destination}});
		}, {{.DelayMillis}});
	</script>
</body>
</html>
`))

// RenderRedirectPage expands the interstitial template. Destination and code are
// escaped for their HTML, attribute and script contexts.
func RenderRedirectPage(data RedirectPageData) (string, error) {
	if data.DelayMillis <= 0 {
		data.DelayMillis = DefaultRedirectDelayMillis
	}
	var buf bytes.Buffer
	if err := redirectPageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
