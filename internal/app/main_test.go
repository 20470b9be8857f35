package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"testing"
)

const fakeAgentEnv = "ECHOSOUL_FAKE_AGENT"

// TestMain turns the test binary into a stand-in agent when fakeAgentEnv is
// set, so end-to-end tests can spawn it as the agent executable.
func TestMain(m *testing.M) {
	if os.Getenv(fakeAgentEnv) == "1" {
		os.Exit(runFakeAgent(os.Args[1:]))
	}
	os.Exit(m.Run())
}

func runFakeAgent(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "missing command")
		return 2
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	dataDir := fs.String("data-dir", "", "")
	workDir := fs.String("work-dir", "", "")
	key := fs.String("key", "", "")
	addr := fs.String("addr", "", "")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	switch args[0] {
	case "key":
		fmt.Println("ABC123")
		return 0
	case "decrypt":
		if *key != "ABC123" {
			fmt.Fprintln(os.Stderr, "invalid key")
			return 1
		}
		if _, err := os.Stat(*dataDir); err != nil {
			fmt.Fprintf(os.Stderr, "data dir: %v\n", err)
			return 1
		}
		if err := os.MkdirAll(*workDir, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := os.WriteFile(filepath.Join(*workDir, "decrypted.db"), []byte("ok"), 0o600); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("decrypted")
		return 0
	case "server":
		return serveFake(*addr)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		return 2
	}
}

func serveFake(addr string) int {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/contact", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	srv := &http.Server{Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	fmt.Println("listening on", addr)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
