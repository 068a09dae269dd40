package livereload

const (
	EventsPath  = "/__livereload"
	ScriptPath  = "/__livereload.js"
	MetricsPath = "/metrics"
)

// Script is the browser client. It reconnects after errors and reloads the
// page on each reload event.
const Script = `(() => {
  if (window.__ASSETPIPE_LR__) return;
  window.__ASSETPIPE_LR__ = true;
  function connect() {
    const es = new EventSource('` + EventsPath + `');
    es.addEventListener('reload', () => location.reload());
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();
`

const scriptTag = `<script src="` + ScriptPath + `"></script>`
