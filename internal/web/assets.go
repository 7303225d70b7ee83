package web

import (
	"encoding/hex"
	"io/fs"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzhttp"
	"github.com/zeebo/blake3"
)

// assetHandler serves the embedded assets with content-hash ETags so browsers
// revalidate with If-None-Match instead of refetching.
func assetHandler() http.Handler {
	assets, _ := fs.Sub(content, "assets")
	tags := make(map[string]string)
	_ = fs.WalkDir(assets, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(assets, path)
		if err != nil {
			return err
		}
		sum := blake3.Sum256(data)
		tags[path] = `"` + hex.EncodeToString(sum[:16]) + `"`
		return nil
	})

	files := http.FileServerFS(assets)
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tag, ok := tags[strings.TrimPrefix(r.URL.Path, "/")]; ok {
			w.Header().Set("ETag", tag)
			w.Header().Set("Cache-Control", "no-cache")
		}
		files.ServeHTTP(w, r)
	}))
}

// compressed gzips responses for clients that accept it. The websocket
// route is registered without it.
func compressed(h http.HandlerFunc) http.Handler {
	return gzhttp.GzipHandler(h)
}
