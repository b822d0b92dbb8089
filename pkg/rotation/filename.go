package rotation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/williamokano/dump_dbs/pkg/config"
	"github.com/williamokano/dump_dbs/pkg/dumperr"
)

const (
	// DateFormat is the layout of the date stamp embedded in artifact names (YYYYMMDD)
	DateFormat = "20060102"

	// LatestToken replaces the date stamp in alias names
	LatestToken = "latest"
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// placeholder names accepted in naming templates; entry-name and date forms
// each have a legacy alias
var placeholders = map[string]bool{
	"name":   true,
	"dbname": true,
	"date":   true,
	"today":  true,
}

// ExpandTemplate substitutes the entry name and date into a naming template.
// Placeholders are written {name} / {date}; the legacy %(name)s, %(dbname)s
// and %(today)s forms are accepted too. "%%" yields a literal "%".
func ExpandTemplate(template, name string, now time.Time) (string, error) {
	values := map[string]string{
		"name":   name,
		"dbname": name,
		"date":   now.Format(DateFormat),
		"today":  now.Format(DateFormat),
	}

	var b strings.Builder
	for i := 0; i < len(template); {
		c := template[i]
		switch {
		case c == '{':
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", dumperr.Configf(name, "unterminated placeholder in name template %q", template)
			}
			key := template[i+1 : i+1+end]
			if !placeholders[key] {
				return "", dumperr.Configf(name, "unknown placeholder {%s} in name template %q", key, template)
			}
			b.WriteString(values[key])
			i += end + 2

		case c == '%' && strings.HasPrefix(template[i:], "%%"):
			b.WriteByte('%')
			i += 2

		case c == '%' && strings.HasPrefix(template[i:], "%("):
			end := strings.Index(template[i:], ")s")
			if end < 0 {
				return "", dumperr.Configf(name, "unterminated placeholder in name template %q", template)
			}
			key := template[i+2 : i+end]
			if !placeholders[key] {
				return "", dumperr.Configf(name, "unknown placeholder %%(%s)s in name template %q", key, template)
			}
			b.WriteString(values[key])
			i += end + 2

		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String(), nil
}

// TargetName computes the relative on-disk artifact name for an entry
func TargetName(settings *config.Settings, entry string, now time.Time) (string, error) {
	name, err := ExpandTemplate(settings.GetNameTemplate(), entry, now)
	if err != nil {
		return "", err
	}

	clean := filepath.Clean(name)
	switch {
	case strings.TrimSpace(name) == "" || clean == ".":
		return "", dumperr.Configf(entry, "name template %q produces an empty name", settings.GetNameTemplate())
	case filepath.IsAbs(clean):
		return "", dumperr.Configf(entry, "name template %q must produce a relative path", settings.GetNameTemplate())
	case clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)):
		return "", dumperr.Configf(entry, "name template %q escapes the target directory", settings.GetNameTemplate())
	}

	return clean, nil
}

// TargetPath computes the absolute raw artifact path under baseDir
func TargetPath(baseDir string, settings *config.Settings, entry string, now time.Time) (string, error) {
	name, err := TargetName(settings, entry, now)
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, name), nil
}

// LatestName derives the alias name for an artifact base name by replacing
// its date stamp with "latest". When stamp (the run date as DateFormat) is
// given and present, only runs equal to it are replaced, so digits that belong
// to the entry name survive. Otherwise every run of exactly eight digits is
// replaced, and names without such a run get every digit run replaced. A name
// with no digits at all has no usable alias.
func LatestName(artifact, stamp string) (string, error) {
	runs := digitRun.FindAllStringIndex(artifact, -1)
	if len(runs) == 0 {
		return "", fmt.Errorf("artifact name %q carries no date stamp", artifact)
	}

	var stamped, dated [][]int
	for _, r := range runs {
		if r[1]-r[0] != len(DateFormat) {
			continue
		}
		dated = append(dated, r)
		if stamp != "" && artifact[r[0]:r[1]] == stamp {
			stamped = append(stamped, r)
		}
	}
	switch {
	case len(stamped) > 0:
		runs = stamped
	case len(dated) > 0:
		runs = dated
	}

	var b strings.Builder
	last := 0
	for _, r := range runs {
		b.WriteString(artifact[last:r[0]])
		b.WriteString(LatestToken)
		last = r[1]
	}
	b.WriteString(artifact[last:])

	return b.String(), nil
}
