package lsp

import "net/url"

// uriToPath converts a file:// URI to a filesystem path, decoding any
// percent escapes. Other schemes and unparseable values report false.
func uriToPath(uri string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return "", false
	}
	return u.Path, true
}
