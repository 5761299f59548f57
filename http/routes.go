package http

import (
	"net/http"
	"regexp"
)

type routeKind int

const (
	routePack routeKind = iota
	routeInfoRefs
	routeTextFile
	routeInfoPacks
	routeLooseObject
	routePackFile
	routeIdxFile
)

var routeNames = map[routeKind]string{
	routePack:        "pack",
	routeInfoRefs:    "info_refs",
	routeTextFile:    "text_file",
	routeInfoPacks:   "info_packs",
	routeLooseObject: "loose_object",
	routePackFile:    "pack_file",
	routeIdxFile:     "idx_file",
}

func (k routeKind) String() string {
	return routeNames[k]
}

type route struct {
	pattern *regexp.Regexp
	method  string
	kind    routeKind
}

// routes is tried in order and the first matching pattern wins. The first
// capture is the repository identifier, the second the file or service.
// objects/info/packs comes before the generic objects/info/* entry because
// it is served with different caching headers.
var routes = []route{
	{regexp.MustCompile(`^/(.*?)/(git-upload-pack|git-receive-pack)$`), http.MethodPost, routePack},
	{regexp.MustCompile(`^/(.*?)/(info/refs)$`), http.MethodGet, routeInfoRefs},
	{regexp.MustCompile(`^/(.*?)/(HEAD|objects/info/alternates|objects/info/http-alternates)$`), http.MethodGet, routeTextFile},
	{regexp.MustCompile(`^/(.*?)/(objects/info/packs)$`), http.MethodGet, routeInfoPacks},
	{regexp.MustCompile(`^/(.*?)/(objects/info/[^/]*)$`), http.MethodGet, routeTextFile},
	{regexp.MustCompile(`^/(.*?)/(objects/[0-9a-f]{2}/[0-9a-f]{38})$`), http.MethodGet, routeLooseObject},
	{regexp.MustCompile(`^/(.*?)/(objects/pack/pack-[0-9a-f]{40}\.pack)$`), http.MethodGet, routePackFile},
	{regexp.MustCompile(`^/(.*?)/(objects/pack/pack-[0-9a-f]{40}\.idx)$`), http.MethodGet, routeIdxFile},
}

// match returns the first route matching path together with the repository
// identifier and the file or service name it captured.
func match(path string) (rt route, repo, name string, ok bool) {
	for _, candidate := range routes {
		m := candidate.pattern.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		return candidate, m[1], m[2], true
	}
	return route{}, "", "", false
}
