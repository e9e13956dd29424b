package monitor

import (
	"net/http"
	"os"

	"faculty-appraisal-api/config"

	"github.com/gin-gonic/gin"
)

const monitorPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1.0" />
  <title>Faculty Appraisal API - Monitor</title>
  <style>
    body { background: #111827; color: #d1d5db; font-family: ui-sans-serif, system-ui, sans-serif; margin: 0; padding: 24px; }
    h1 { font-size: 1.4rem; color: #f9fafb; margin: 0 0 4px; }
    .sub { color: #6b7280; font-size: 0.85rem; margin-bottom: 20px; }
    .pill { display: inline-block; padding: 2px 10px; border-radius: 999px; font-size: 0.8rem; }
    .up { background: #064e3b; color: #6ee7b7; }
    .down { background: #7f1d1d; color: #fca5a5; }
    .card { background: #1f2937; border-radius: 8px; padding: 16px; margin-bottom: 16px; max-width: 960px; }
    pre { margin: 0; font-size: 0.78rem; line-height: 1.5; white-space: pre-wrap; word-break: break-all; max-height: 60vh; overflow-y: auto; }
  </style>
</head>
<body>
  <h1>Faculty Appraisal API</h1>
  <div class="sub">server monitor</div>
  <div class="card">
    Status: <span id="status" class="pill down">checking...</span>
  </div>
  <div class="card">
    <pre id="logs">loading logs...</pre>
  </div>
  <script>
    const token = new URLSearchParams(location.search).get('token') || '';
    const statusEl = document.getElementById('status');
    const logsEl = document.getElementById('logs');

    function refreshStatus() {
      fetch('/api/v1/health')
        .then(r => r.json())
        .then(() => { statusEl.textContent = 'online'; statusEl.className = 'pill up'; })
        .catch(() => { statusEl.textContent = 'offline'; statusEl.className = 'pill down'; });
    }

    function refreshLogs() {
      fetch('/logs?token=' + encodeURIComponent(token))
        .then(r => r.ok ? r.text() : Promise.reject(r.status))
        .then(text => {
          const lines = text.trim().split('\n');
          logsEl.textContent = lines.slice(-200).join('\n');
          logsEl.scrollTop = logsEl.scrollHeight;
        })
        .catch(code => { logsEl.textContent = 'logs unavailable (' + code + ')'; });
    }

    refreshStatus();
    refreshLogs();
    setInterval(refreshStatus, 5000);
    setInterval(refreshLogs, 5000);
  </script>
</body>
</html>`

// RegisterMonitorPage serves the server-status page. Log access from the page
// requires the monitor token as a query parameter.
func RegisterMonitorPage(router *gin.Engine) {
	router.GET("/monitor", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(monitorPage))
	})
}

// RegisterLogsRoute serves the raw log file behind MONITOR_TOKEN. The route
// refuses all requests when no token is configured.
func RegisterLogsRoute(router *gin.Engine) {
	router.GET("/logs", func(c *gin.Context) {
		token := os.Getenv("MONITOR_TOKEN")
		if token == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Log access is not configured"})
			return
		}
		if c.Query("token") != token {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		logData, err := os.ReadFile(config.LogFilePath())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read log"})
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", logData)
	})
}
