package rotation

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/im7mortal/kmutex"
	"github.com/rs/zerolog"

	"github.com/williamokano/dump_dbs/pkg/dumperr"
)

// Rotator maintains the "latest" alias of each entry's newest final artifact
type Rotator struct {
	locks  *kmutex.Kmutex
	logger zerolog.Logger
}

// NewRotator creates a rotator. One rotator should be shared by every entry of
// a run so that links to the same alias are serialized.
func NewRotator(logger zerolog.Logger) *Rotator {
	return &Rotator{
		locks:  kmutex.New(),
		logger: logger,
	}
}

// AliasPath returns the alias path for a final artifact path dated date
func AliasPath(finalPath string, date time.Time) (string, error) {
	latest, err := LatestName(filepath.Base(finalPath), date.Format(DateFormat))
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(finalPath), latest), nil
}

// Link points the entry's alias at finalPath, an artifact dated date, and
// returns the alias path.
// When enabled is false nothing is touched and "" is returned. The alias is
// swapped atomically: a temporary link is created next to it and renamed over
// the old one, so readers always see a valid alias.
func (r *Rotator) Link(entry, finalPath string, date time.Time, enabled bool) (string, error) {
	if !enabled {
		r.logger.Debug().Str("entry", entry).Msg("latest link disabled")
		return "", nil
	}

	alias, err := AliasPath(finalPath, date)
	if err != nil {
		return "", &dumperr.ConfigurationError{Entry: entry, Reason: "cannot derive latest link", Err: err}
	}
	if alias == finalPath {
		return "", dumperr.Configf(entry, "latest link would replace the artifact %s", finalPath)
	}

	r.locks.Lock(alias)
	defer r.locks.Unlock(alias)

	target := filepath.Base(finalPath)
	dir := filepath.Dir(alias)
	tmp := filepath.Join(dir, "."+filepath.Base(alias)+".tmp-"+uuid.NewString())

	if err := os.Symlink(target, tmp); err != nil {
		return "", &dumperr.FilesystemError{Op: "symlink", Path: tmp, Err: err}
	}

	action := "create link"
	if fi, err := os.Lstat(alias); err == nil {
		if fi.IsDir() {
			os.Remove(tmp)
			return "", &dumperr.FilesystemError{Op: "replace", Path: alias, Err: errors.New("alias path is a directory")}
		}
		action = "move link"
	} else if !os.IsNotExist(err) {
		os.Remove(tmp)
		return "", &dumperr.FilesystemError{Op: "lstat", Path: alias, Err: err}
	}

	if err := os.Rename(tmp, alias); err != nil {
		os.Remove(tmp)
		return "", &dumperr.FilesystemError{Op: "rename", Path: alias, Err: err}
	}

	r.logger.Info().
		Str("entry", entry).
		Str("link", alias).
		Str("target", target).
		Msg(action)

	return alias, nil
}
