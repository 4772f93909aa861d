package fetcher

import (
	"regexp"
	"strings"
)

// linkRegex matcher én oppføring i Link-headeren: <url>; rel="type".
var linkRegex = regexp.MustCompile(`<([^>]+)>;\s*rel="([^"]+)"`)

// ParseLinks returnerer URL per relasjon fra en Link-header.
func ParseLinks(linkHeader string) map[string]string {
	links := map[string]string{}
	if linkHeader == "" {
		return links
	}

	for _, part := range strings.Split(linkHeader, ",") {
		m := linkRegex.FindStringSubmatch(strings.TrimSpace(part))
		if len(m) != 3 {
			continue
		}
		// rel kan inneholde flere relasjoner separert med mellomrom
		for _, rel := range strings.Fields(m[2]) {
			links[rel] = m[1]
		}
	}
	return links
}

// NextLink gir URL-en til neste side, eller tom streng.
func NextLink(linkHeader string) string {
	return ParseLinks(linkHeader)["next"]
}

func HasNextPage(linkHeader string) bool {
	return NextLink(linkHeader) != ""
}
