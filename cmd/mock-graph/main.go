// Command mock-graph serves the in-memory Graph mock over HTTP so the bot can be pointed
// at it with graph.base_url=http://<addr>/v1.0.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/shpitdev/commsync-todo/internal/mockgraph"
)

func main() {
	addr := defaultString("MOCK_GRAPH_ADDR", ":8081")
	fixtures := defaultString("MOCK_GRAPH_FIXTURES", "")
	token := defaultString("MOCK_GRAPH_TOKEN", "")

	fs := flag.NewFlagSet("mock-graph", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&fixtures, "fixtures", fixtures, "Comma-separated YAML fixture files to seed (also supports env: MOCK_GRAPH_FIXTURES)")
	fs.StringVar(&token, "token", token, "Require this bearer token on every request")
	_ = fs.Parse(os.Args[1:])

	srv := mockgraph.New()
	for _, path := range splitCSV(fixtures) {
		f, err := mockgraph.LoadFixtureFile(path)
		if err == nil {
			err = srv.Load(f)
		}
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "fixture %s: %v\n", path, err)
			os.Exit(2)
		}
	}
	if token != "" {
		srv.RequireBearerToken(token)
	}

	_, _ = fmt.Fprintf(os.Stdout, "mock-graph listening on %s%s (lists=%d)\n", addr, mockgraph.BasePath, len(srv.Lists()))
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func defaultString(envVar, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		return v
	}
	return fallback
}
