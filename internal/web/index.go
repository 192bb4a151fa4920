package web

const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>volscan</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
td, th { border-bottom: 1px solid #333; padding: 4px 8px; text-align: left; }
.up { color: #6c6; }
.down { color: #c66; }
.extreme { font-weight: bold; }
</style>
</head>
<body>
<h1>volscan &mdash; volume anomalies</h1>
<p><a href="/events.csv" style="color:#8af">download csv</a></p>
<table id="events">
<tr><th>time</th><th>symbol</th><th>tf</th><th>dir</th><th>severity</th><th>z</th></tr>
</table>
<script>
const table = document.getElementById('events');
const source = new EventSource('/events/stream');
source.addEventListener('anomaly', function (e) {
	const ev = JSON.parse(e.data);
	const row = table.insertRow(1);
	row.className = ev.direction + (ev.severity === 'extreme' ? ' extreme' : '');
	row.innerHTML = '<td>' + ev.time + '</td><td>' + ev.symbol + '</td><td>' +
		ev.timeframe + '</td><td>' + ev.direction + '</td><td>' +
		ev.severity + '</td><td>' + ev.z_score.toFixed(2) + '</td>';
});
</script>
</body>
</html>`
