// Package converge brings managed files and external commands in line with
// desired state, doing the minimal work needed and reporting whether anything
// changed.
package converge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// Result reports what a file convergence did.
type Result int

const (
	Unchanged Result = iota
	Changed
)

func (r Result) String() string {
	if r == Changed {
		return "changed"
	}
	return "unchanged"
}

// FileState is the desired state of one managed file.
type FileState struct {
	Path    string
	Content []byte
	Owner   string
	Group   string
	Mode    fs.FileMode
}

// SyntaxCheck validates a candidate file before it replaces the target.
// It receives the path of the temporary file, never the target itself.
type SyntaxCheck func(ctx context.Context, path string) error

// ConvergeError is any failure while bringing a file to its desired state.
// The target file is left untouched when this is returned.
type ConvergeError struct {
	Path string
	Err  error
}

func (e *ConvergeError) Error() string {
	return fmt.Sprintf("converge %s: %v", e.Path, e.Err)
}

func (e *ConvergeError) Unwrap() error { return e.Err }

// File makes the file at st.Path match st. The new content is written to a
// temporary file in the same directory, checked, and renamed into place, so
// the target is either the old content or the full new content.
func File(ctx context.Context, st FileState, check SyntaxCheck) (Result, error) {
	uid, gid, err := lookupIDs(st.Owner, st.Group)
	if err != nil {
		return Unchanged, &ConvergeError{Path: st.Path, Err: err}
	}

	differs, err := fileDiffers(st, uid, gid)
	if err != nil {
		return Unchanged, &ConvergeError{Path: st.Path, Err: err}
	}
	if !differs {
		return Unchanged, nil
	}

	dir := filepath.Dir(st.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Unchanged, &ConvergeError{Path: st.Path, Err: fmt.Errorf("create parent directory: %w", err)}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(st.Path)+".tmp-")
	if err != nil {
		return Unchanged, &ConvergeError{Path: st.Path, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(st.Content); err != nil {
		_ = tmp.Close()
		return Unchanged, &ConvergeError{Path: st.Path, Err: fmt.Errorf("write temp file: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return Unchanged, &ConvergeError{Path: st.Path, Err: fmt.Errorf("close temp file: %w", err)}
	}

	if err := os.Chmod(tmpPath, st.Mode.Perm()); err != nil {
		return Unchanged, &ConvergeError{Path: st.Path, Err: fmt.Errorf("set mode: %w", err)}
	}
	if err := chownIfNeeded(tmpPath, uid, gid); err != nil {
		return Unchanged, &ConvergeError{Path: st.Path, Err: fmt.Errorf("set ownership: %w", err)}
	}

	if check != nil {
		if err := check(ctx, tmpPath); err != nil {
			return Unchanged, &ConvergeError{Path: st.Path, Err: fmt.Errorf("syntax check: %w", err)}
		}
	}

	if err := os.Rename(tmpPath, st.Path); err != nil {
		return Unchanged, &ConvergeError{Path: st.Path, Err: fmt.Errorf("rename into place: %w", err)}
	}
	committed = true
	return Changed, nil
}

// FileDiff reports whether converging st would change anything on disk.
// It never writes.
func FileDiff(st FileState) (bool, error) {
	uid, gid, err := lookupIDs(st.Owner, st.Group)
	if err != nil {
		return false, &ConvergeError{Path: st.Path, Err: err}
	}
	differs, err := fileDiffers(st, uid, gid)
	if err != nil {
		return false, &ConvergeError{Path: st.Path, Err: err}
	}
	return differs, nil
}

func fileDiffers(st FileState, uid, gid int) (bool, error) {
	current, err := os.ReadFile(st.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read current content: %w", err)
	}
	if !bytes.Equal(current, st.Content) {
		return true, nil
	}

	var stat unix.Stat_t
	if err := unix.Stat(st.Path, &stat); err != nil {
		return false, fmt.Errorf("stat current file: %w", err)
	}
	if fs.FileMode(stat.Mode).Perm() != st.Mode.Perm() {
		return true, nil
	}
	if int(stat.Uid) != uid || int(stat.Gid) != gid {
		return true, nil
	}
	return false, nil
}

// chownIfNeeded skips the chown syscall when ownership already matches, so
// unprivileged runs that target the invoking user keep working.
func chownIfNeeded(path string, uid, gid int) error {
	var stat unix.Stat_t
	if err := unix.Stat(path, &stat); err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if int(stat.Uid) == uid && int(stat.Gid) == gid {
		return nil
	}
	return os.Chown(path, uid, gid)
}

func lookupIDs(owner, group string) (uid, gid int, err error) {
	u, err := user.Lookup(owner)
	if err != nil {
		return 0, 0, fmt.Errorf("lookup user %q: %w", owner, err)
	}
	g, err := user.LookupGroup(group)
	if err != nil {
		return 0, 0, fmt.Errorf("lookup group %q: %w", group, err)
	}
	uid, err = strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, fmt.Errorf("parse uid %q: %w", u.Uid, err)
	}
	gid, err = strconv.Atoi(g.Gid)
	if err != nil {
		return 0, 0, fmt.Errorf("parse gid %q: %w", g.Gid, err)
	}
	return uid, gid, nil
}
