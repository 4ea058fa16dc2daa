// Package cookiestxt reads Netscape-format cookie files ("cookies.txt" as
// exported by browser extensions) into a Cookie request header value.
package cookiestxt

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Parse extracts the cookies matching domain from a Netscape cookie file
// and joins them into a "name=value; name=value" header value. An empty
// domain matches every line.
func Parse(r io.Reader, domain string) (string, error) {
	var pairs []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "# ") {
			continue
		}
		// domain, include-subdomains, path, secure, expiry, name, value
		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			continue
		}
		if domain != "" && !strings.Contains(fields[0], domain) {
			continue
		}
		pairs = append(pairs, fields[5]+"="+fields[6])
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	return strings.Join(pairs, "; "), nil
}

// Load is Parse over a file path.
func Load(path, domain string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Parse(f, domain)
}
