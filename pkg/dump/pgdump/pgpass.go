package pgdump

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DockerPgpassPath is where container images mount credentials
const DockerPgpassPath = "/config/.pgpass"

// PgpassCandidates returns the password file locations to try, in order:
// $PGPASSFILE, the container mount, then ~/.pgpass
func PgpassCandidates() []string {
	var paths []string
	if env := os.Getenv("PGPASSFILE"); env != "" {
		paths = append(paths, env)
	}
	paths = append(paths, DockerPgpassPath)
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".pgpass"))
	}
	return paths
}

// FindPgpass returns the first existing password file among candidates
func FindPgpass(candidates []string) (string, error) {
	for _, path := range candidates {
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("no .pgpass file found (tried: %s)", strings.Join(candidates, ", "))
}

// ValidatePgpassPermissions checks that the file is only accessible by its
// owner. libpq silently ignores password files with looser permissions.
func ValidatePgpassPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat .pgpass file: %w", err)
	}

	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return fmt.Errorf(".pgpass file has incorrect permissions %o, must be 0600", mode)
	}
	return nil
}

// HasPgpassEntry reports whether the password file has a line matching the
// connection. Fields may be "*" and may contain \: or \\ escapes.
func HasPgpassEntry(path, host, port, database, user string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open .pgpass file: %w", err)
	}
	defer file.Close()

	want := []string{host, port, database, user}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := splitPgpassLine(line)
		if len(fields) != 5 {
			continue
		}

		matched := true
		for i, v := range want {
			if fields[i] != "*" && fields[i] != v {
				matched = false
				break
			}
		}
		if matched {
			return true, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("error reading .pgpass file: %w", err)
	}
	return false, nil
}

func splitPgpassLine(line string) []string {
	var fields []string
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case c == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}
