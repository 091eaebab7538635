package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// EmbedSnippet renders the HTML a page needs to host the animation with cfg.
// baseURL is the public http(s) root of this server.
func EmbedSnippet(cfg *Config, baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid base url %q", baseURL)
	}
	ws := *u
	switch u.Scheme {
	case "https":
		ws.Scheme = "wss"
	case "http":
		ws.Scheme = "ws"
	default:
		return "", fmt.Errorf("invalid base url scheme %q", u.Scheme)
	}
	ws.Path = u.Path + "/ws"

	conf, err := json.MarshalIndent(cfg, "\t", "\t")
	if err != nil {
		return "", err
	}

	lines := []string{
		`<div id="yapa"></div>`,
		fmt.Sprintf(`<script src="%s/yapa.js"></script>`, u.String()),
		`<script type="text/javascript">`,
		"\tconst conf = " + string(conf) + ";",
		"",
		`	const container = document.getElementById("yapa");`,
		fmt.Sprintf(`	const yapa = new Yapa(container, %q, conf);`, ws.String()),
		`	yapa.start();`,
		`</script>`,
	}
	return strings.Join(lines, "\n") + "\n", nil
}
