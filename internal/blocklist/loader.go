package blocklist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadFile reads extra blocklist entries from a file. Both hosts-file
// format ("0.0.0.0 domain") and plain domain lists are accepted; blank
// lines and comments are skipped. Loading happens at the configuration
// boundary, so errors surface to the caller instead of being swallowed
// like pipeline parse failures.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blocklist: %w", err)
	}
	defer f.Close()
	return ParseList(f)
}

// ParseList parses a hosts-file or plain domain list from r.
func ParseList(r io.Reader) ([]string, error) {
	var domains []string
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Inline comments
		if idx := strings.Index(line, "#"); idx != -1 {
			line = strings.TrimSpace(line[:idx])
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if len(fields) >= 2 {
			// Hosts-file format: IP followed by one or more domains.
			for _, d := range fields[1:] {
				if d = normalize(d); d != "" && !isLocalhost(d) {
					domains = append(domains, d)
				}
			}
		} else {
			if d := normalize(fields[0]); d != "" && !isLocalhost(d) {
				domains = append(domains, d)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read blocklist: %w", err)
	}
	return domains, nil
}

func isLocalhost(domain string) bool {
	return domain == "localhost" || domain == "localhost.localdomain"
}
