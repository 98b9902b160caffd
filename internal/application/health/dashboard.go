package health

import (
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"
)

// RenderDashboardHTML returns the HTML status page for GET /.
func RenderDashboardHTML(health CollectResult) string {
	b, _ := json.Marshal(health)
	// Escape for embedding in a JS template literal: \ ` $
	jsonStr := string(b)
	jsonStr = strings.ReplaceAll(jsonStr, "\\", "\\\\")
	jsonStr = strings.ReplaceAll(jsonStr, "`", "\\`")
	jsonStr = strings.ReplaceAll(jsonStr, "$", "\\$")

	headline := "All Systems Operational"
	if health.Status != "ok" {
		headline = "System Issues Detected"
	}

	names := make([]string, 0, len(health.Dependencies))
	for name := range health.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	var deps strings.Builder
	for _, name := range names {
		d := health.Dependencies[name]
		class := "err"
		if d.Status == "connected" || d.Status == "reachable" {
			class = "ok"
		}
		ping := "?"
		if p, ok := d.PingMs.(*int64); ok && p != nil {
			ping = fmt.Sprint(*p)
		}
		fmt.Fprintf(&deps, `<div class="row"><span>%s</span><span class="pill %s">%s · %s ms</span></div>`,
			html.EscapeString(name), class, html.EscapeString(d.Status), ping)
	}

	lastReq := "-"
	if m, ok := health.Traffic.LastRequest.(map[string]interface{}); ok {
		lastReq = fmt.Sprintf("%v %v", m["method"], m["path"])
	}

	return `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>DealSplit · API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <style>
    body { background: #F8FAFC; color: #0F172A; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; display: flex; justify-content: center; padding: 48px 16px; }
    .container { width: 100%; max-width: 960px; }
    h1 { font-size: 40px; font-weight: 900; letter-spacing: -2px; margin: 0 0 8px 0; }
    .subtext { color: #64748B; font-weight: 700; margin: 0 0 24px 0; }
    .grid { display: grid; grid-template-columns: repeat(3, 1fr); background: #fff; border-radius: 24px; box-shadow: 0 20px 60px -20px rgba(37, 99, 235, 0.2); }
    .col { padding: 32px; border-right: 1px solid #F1F5F9; }
    .col:last-child { border-right: none; }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 900; letter-spacing: 2px; color: #94A3B8; margin-bottom: 16px; }
    .big { font-size: 36px; font-weight: 900; margin-bottom: 8px; }
    .row { display: flex; justify-content: space-between; padding: 6px 0; font-size: 14px; font-weight: 700; }
    .pill { padding: 3px 10px; border-radius: 8px; font-size: 11px; }
    .ok { background: #EFF6FF; color: #2563EB; }
    .err { background: #FEF2F2; color: #EF4444; }
    .links { margin-top: 24px; font-size: 13px; }
    .links a { color: #2563EB; margin-right: 16px; }
    @media (max-width: 800px) { .grid { grid-template-columns: 1fr; } .col { border-right: none; } }
  </style>
</head>
<body>
  <div class="container">
    <h1 id="headline">` + headline + `</h1>
    <p class="subtext">API performance and dependencies.</p>
    <div class="grid">
      <div class="col">
        <div class="label">Traffic</div>
        <div class="big" id="total-req">` + fmt.Sprint(health.Traffic.TotalRequests) + `</div>
        <div class="row"><span>Successful</span><span id="success-count">` + fmt.Sprint(health.Traffic.SuccessCount) + `</span></div>
        <div class="row"><span>Failed</span><span id="failed-count">` + fmt.Sprint(health.Traffic.FailedCount) + `</span></div>
        <div class="row"><span>Success Rate</span><span id="success-rate">` + health.Traffic.SuccessRate + `%</span></div>
        <div class="row"><span>Avg Latency</span><span id="avg-time">` + fmt.Sprint(health.Traffic.AvgResponseTime) + `ms</span></div>
        <div class="row"><span>Last</span><span>` + html.EscapeString(lastReq) + `</span></div>
      </div>
      <div class="col">
        <div class="label">Runtime</div>
        <div class="big" id="uptime">` + fmt.Sprint(health.Runtime.UptimeSeconds) + `s</div>
        <div class="row"><span>Heap Used</span><span>` + fmt.Sprint(health.Runtime.Memory.HeapUsed) + ` MB</span></div>
        <div class="row"><span>Goroutines</span><span>` + fmt.Sprint(health.Runtime.Goroutines) + `</span></div>
        <div class="row"><span>Platform</span><span>` + health.Runtime.Platform + `</span></div>
        <div class="row"><span>Go</span><span>` + health.Runtime.GoVersion + `</span></div>
      </div>
      <div class="col">
        <div class="label">Connectivity</div>
        ` + deps.String() + `
      </div>
    </div>
    <div class="links"><a href="/health/json">/health/json</a><a href="/health/errors">/health/errors</a></div>
  </div>
  <script>
    const initial = JSON.parse(` + "`" + jsonStr + "`" + `);
    const update = (d) => {
      document.getElementById('headline').innerText = d.status === 'ok' ? 'All Systems Operational' : 'System Issues Detected';
      document.getElementById('total-req').innerText = d.traffic.totalRequests;
      document.getElementById('success-count').innerText = d.traffic.successCount;
      document.getElementById('failed-count').innerText = d.traffic.failedCount;
      document.getElementById('success-rate').innerText = d.traffic.successRate + '%';
      document.getElementById('avg-time').innerText = d.traffic.avgResponseTime + 'ms';
      document.getElementById('uptime').innerText = d.runtime.uptimeSeconds + 's';
    };
    update(initial);
    let left = 3;
    const timer = setInterval(async () => {
      if (--left < 0) { clearInterval(timer); return; }
      try { const r = await fetch('/health/json'); update(await r.json()); } catch (e) {}
    }, 10000);
  </script>
</body>
</html>`
}
