package observability

import (
	"context"
	"net"
	"net/http"
	"net/http/pprof"

	"github.com/ratersapp/siws/internal/conf"
)

// ConfigureProfiler serves pprof on its own address while ctx is live.
func ConfigureProfiler(ctx context.Context, pc *conf.ProfilerConfig) error {
	if !pc.Enabled {
		return nil
	}
	serveUntilDone(ctx, "profiler", net.JoinHostPort(pc.Host, pc.Port), profilerHandler())
	return nil
}

func profilerHandler() http.Handler {
	mux := http.NewServeMux()
	// Index also serves the named profiles (heap, goroutine, allocs, ...)
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
