package httpserver

import (
	"net/http"

	"github.com/lattice-run/ttlcache/internal/cache"
	"github.com/lattice-run/ttlcache/internal/taskbridge"
)

// greeting is the payload built for the single "greeting" key the
// hello-world handler exercises. Generalized from
// original_source/common/lwan-mod-helloworld.c, which serves a static
// string with no cache involvement at all; here the string is the payload
// of a cache entry so the handler exercises GetAndRef/Unref like any real
// consumer would.
type greeting struct {
	body []byte
}

// HelloWorld serves text/plain "hello world from ttlcache", fetching the
// body through c via the taskbridge so a contended hash lock degrades to a
// yield-and-retry instead of blocking the request goroutine outright.
func HelloWorld(c *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sched := taskbridge.NewTaskScheduler()
		defer sched.Unwind()

		entry, err := taskbridge.GetAndRef(r.Context(), c, "greeting", sched)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if entry == nil {
			http.Error(w, "greeting unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.Write(entry.Payload.(*greeting).body)
	}
}

// GreetingConstructor is the cache.Constructor for the "greeting" key.
func GreetingConstructor(key string, _ any) any {
	return &greeting{body: []byte("hello world from ttlcache")}
}

// GreetingDestructor is the cache.Destructor for entries built by
// GreetingConstructor. There's nothing to release, but every cache
// requires a non-nil destructor.
func GreetingDestructor(any, any) {}
