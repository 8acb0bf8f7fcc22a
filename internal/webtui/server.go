// Package webtui serves the Plotline TUI in a browser: each websocket
// connection gets its own `plotline tui` process on a PTY.
package webtui

import (
	"errors"
	"html/template"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

const xtermVersion = "5.3.0"

var pageTmpl = template.Must(template.New("terminal").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/xterm@{{.Xterm}}/css/xterm.css">
<style>html,body{margin:0;height:100%;background:#111}#term{height:100%}</style>
</head>
<body>
<div id="term"></div>
<script src="https://cdn.jsdelivr.net/npm/xterm@{{.Xterm}}/lib/xterm.js"></script>
<script src="https://cdn.jsdelivr.net/npm/xterm-addon-fit@0.8.0/lib/xterm-addon-fit.js"></script>
<script>
const term = new Terminal({cursorBlink: true});
const fit = new FitAddon.FitAddon();
term.loadAddon(fit);
term.open(document.getElementById("term"));
fit.fit();
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.binaryType = "arraybuffer";
const resize = () => ws.send(JSON.stringify({type: "resize", cols: term.cols, rows: term.rows}));
ws.onopen = () => resize();
ws.onmessage = (e) => term.write(typeof e.data === "string" ? e.data : new Uint8Array(e.data));
ws.onclose = () => term.write("\r\n[session closed]\r\n");
term.onData((d) => ws.send(d));
window.addEventListener("resize", () => { fit.fit(); resize(); });
</script>
</body>
</html>
`))

type ServerConfig struct {
	Addr string
	// Args are passed to the plotline binary, e.g. --dir and --server.
	Args []string
	// Command overrides the child process; nil runs `<self> tui <Args...>`.
	Command func() (*exec.Cmd, error)
	Logger  *zap.Logger
}

type Server struct {
	cfg    ServerConfig
	logger *zap.Logger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("webtui: missing addr")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, logger: logger}, nil
}

func (s *Server) Addr() string {
	return strings.TrimSpace(s.cfg.Addr)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/terminal", http.StatusFound)
	})
	mux.HandleFunc("GET /terminal", s.handleTerminal)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	vm := struct{ Title, Xterm string }{Title: "Plotline", Xterm: xtermVersion}
	if err := pageTmpl.Execute(w, vm); err != nil {
		s.logger.Warn("render terminal page", zap.Error(err))
	}
}

func (s *Server) command() (*exec.Cmd, error) {
	if s.cfg.Command != nil {
		return s.cfg.Command()
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	args := append([]string{"tui"}, s.cfg.Args...)
	cmd := exec.Command(exe, args...)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color", "COLORTERM=truecolor")
	return cmd, nil
}
