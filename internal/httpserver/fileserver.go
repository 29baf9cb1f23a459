package httpserver

import "net/http"

// FileServer wraps http.FileServer rooted at root, standing in for lwan's
// file-serving module (referenced from original_source/lwan/main.c as
// SERVE_FILES(root), backed by lwan-mod-serve-files). Directory listing
// and range requests are whatever net/http.FileServer already provides;
// there is no cache involvement here, matching spec.md's framing of file
// serving as an unshaped consumer.
func FileServer(root string) http.Handler {
	return http.FileServer(http.Dir(root))
}
