package static

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
)

//go:embed web
var files embed.FS

// FS is the embedded browser client.
func FS() fs.FS {
	sub, err := fs.Sub(files, "web")
	if err != nil {
		panic(err)
	}
	return sub
}

// Handler serves dir when it is set and exists, the embedded client
// otherwise. Unknown paths fall back to index.html.
func Handler(dir string) (http.Handler, error) {
	var root fs.FS
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
		root = os.DirFS(filepath.Clean(dir))
	} else {
		root = FS()
	}

	fileServer := http.FileServer(http.FS(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean(r.URL.Path)
		if name == "/" {
			fileServer.ServeHTTP(w, r)
			return
		}
		if info, err := fs.Stat(root, name[1:]); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}
		http.ServeFileFS(w, r, root, "index.html")
	}), nil
}
