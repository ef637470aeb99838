// cmd/preflight/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hamed0406/apimonitor/internal/config"
)

func main() {
	os.Exit(run(os.Stdout, os.Stderr))
}

func run(stdout, stderr io.Writer) int {
	warn := func(msg string) { fmt.Fprintln(stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(stdout, "✔", msg) }

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(stderr, "✖", err)
		return 1
	}

	ok("API_ADDR=" + cfg.Addr)
	ok("LOG_DIR=" + cfg.LogDir + " LOG_LEVEL=" + cfg.LogLevel)
	ok("PROBE_TIMEOUT=" + cfg.ProbeTimeout.String())

	switch cfg.Store {
	case config.StoreSQLite:
		ok("STORE=sqlite path=" + cfg.SQLitePath)
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				warn("directory " + dir + " does not exist yet; it will be created on start")
			}
		}
	case config.StorePostgres:
		ok("STORE=postgres (DATABASE_URL present)")
	case config.StoreMemory:
		warn("STORE=memory; results are lost on restart")
	}

	origins := strings.Join(cfg.AllowedOrigins, ",")
	if origins == "*" {
		warn("ALLOWED_ORIGINS=* allows any browser origin")
	} else {
		ok("ALLOWED_ORIGINS=" + origins)
	}

	ok("preflight passed")
	return 0
}
