package pipeline

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultCompany is used when no company can be derived from the URL.
const DefaultCompany = "Company, Inc."

// CompanyFromURL guesses the company name from a job board URL. Greenhouse and
// Lever boards carry the company as the first path segment; other sites use
// the first label of the host.
func CompanyFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return DefaultCompany
	}

	host := strings.ToLower(u.Hostname())
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var name string
	switch {
	case strings.HasSuffix(host, "greenhouse.io"), strings.HasSuffix(host, "lever.co"):
		name = segments[0]
	default:
		name = strings.SplitN(strings.TrimPrefix(host, "www."), ".", 2)[0]
	}

	name = strings.TrimSpace(strings.ReplaceAll(name, "-", " "))
	if name == "" {
		return DefaultCompany
	}
	return cases.Title(language.Und).String(name)
}
