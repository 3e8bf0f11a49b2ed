package compare

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"

	"github.com/mergefiles/mergefiles/pkg/errors"
	"github.com/mergefiles/mergefiles/pkg/logging"
	"github.com/mergefiles/mergefiles/pkg/types"
)

// Options controls how the comparator walks and matches paths.
type Options struct {
	// FollowSymlinks resolves symlinks during the walk. Symlinked
	// directories are traversed with cycle detection; symlinked files
	// are emitted like regular files. When false, symlinks are ignored.
	FollowSymlinks bool

	// CaseInsensitive folds case when matching relative paths across
	// the two roots.
	CaseInsensitive bool
}

// record is one file found during a walk.
type record struct {
	rel  types.RelPath
	meta *types.FileMeta
}

// tree is the outcome of walking one root: files keyed by their folded
// relative path, plus deferred access errors for unlistable subtrees.
type tree struct {
	files    map[string]record
	deferred []deferredErr
}

type deferredErr struct {
	rel types.RelPath
	err error
}

// Enumerate walks sourceRoot and destRoot and returns one entry per
// relative path found in either tree, sorted lexicographically.
// Subtrees that cannot be listed produce entries with Err set; only an
// unreadable root itself makes Enumerate fail.
func Enumerate(fsys types.FS, sourceRoot, destRoot string, opts Options) ([]types.Entry, error) {
	logger := logging.GetLogger("compare")

	src, err := walk(fsys, sourceRoot, opts)
	if err != nil {
		return nil, err
	}

	// The destination may not exist yet; it is created lazily on the
	// first copy, so an absent destination compares as an empty tree.
	dst := &tree{files: map[string]record{}}
	if _, serr := fsys.Stat(destRoot); serr == nil {
		dst, err = walk(fsys, destRoot, opts)
		if err != nil {
			return nil, err
		}
	}

	keys := make(map[string]struct{}, len(src.files)+len(dst.files))
	for k := range src.files {
		keys[k] = struct{}{}
	}
	for k := range dst.files {
		keys[k] = struct{}{}
	}

	entries := make([]types.Entry, 0, len(keys)+len(src.deferred)+len(dst.deferred))
	for k := range keys {
		s, inSrc := src.files[k]
		d, inDst := dst.files[k]
		switch {
		case inSrc && inDst:
			entries = append(entries, types.Entry{
				Path:       s.rel,
				Class:      types.InBoth,
				SourceMeta: s.meta,
				DestMeta:   d.meta,
			})
		case inSrc:
			entries = append(entries, types.Entry{
				Path:       s.rel,
				Class:      types.OnlyInSource,
				SourceMeta: s.meta,
			})
		default:
			entries = append(entries, types.Entry{
				Path:     d.rel,
				Class:    types.OnlyInDest,
				DestMeta: d.meta,
			})
		}
	}

	for _, de := range src.deferred {
		entries = append(entries, types.Entry{Path: de.rel, Class: types.OnlyInSource, Err: de.err})
	}
	for _, de := range dst.deferred {
		entries = append(entries, types.Entry{Path: de.rel, Class: types.OnlyInDest, Err: de.err})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path.Fold(opts.CaseInsensitive) < entries[j].Path.Fold(opts.CaseInsensitive)
	})

	logger.Debug().
		Str("source", sourceRoot).
		Str("dest", destRoot).
		Int("entries", len(entries)).
		Int("deferred", len(src.deferred)+len(dst.deferred)).
		Msg("Enumeration complete")

	return entries, nil
}

// walk lists every file under root using an explicit directory stack.
// Recursion depth is bounded by the stack, not the call stack, and
// symlinked directories are tracked in a visited set so a link cycle
// terminates instead of looping.
func walk(fsys types.FS, root string, opts Options) (*tree, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrRootNotFound, "root %s is not accessible", root)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrRootNotDir, "root %s is not a directory", root)
	}

	t := &tree{files: make(map[string]record)}

	// visited guards symlink cycles; keyed by the resolved absolute
	// directory path.
	visited := map[string]struct{}{
		filepath.Clean(root): {},
	}

	type frame struct {
		abs string // absolute directory path
		rel string // slash-separated path relative to root, "" for root
	}
	stack := []frame{{abs: root, rel: ""}}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dirents, err := fsys.ReadDir(dir.abs)
		if err != nil {
			rel := dir.rel
			if rel == "" {
				rel = "."
			}
			t.deferred = append(t.deferred, deferredErr{
				rel: types.RelPath(rel),
				err: errors.Wrapf(err, errors.ErrAccess, "cannot list directory %s", dir.abs),
			})
			continue
		}

		for _, de := range dirents {
			abs := filepath.Join(dir.abs, de.Name())
			rel := path.Join(dir.rel, de.Name())
			mode := de.Type()

			switch {
			case mode&fs.ModeSymlink != 0:
				if !opts.FollowSymlinks {
					continue
				}
				// Resolve through the link: a target directory is
				// traversed, a target file is emitted.
				target, terr := fsys.Stat(abs)
				if terr != nil {
					// Broken link; treat as absent.
					continue
				}
				if target.IsDir() {
					canonical, cerr := resolveLink(fsys, abs, dir.abs)
					if cerr != nil {
						continue
					}
					if _, seen := visited[canonical]; seen {
						continue
					}
					visited[canonical] = struct{}{}
					stack = append(stack, frame{abs: abs, rel: rel})
					continue
				}
				t.files[types.RelPath(rel).Fold(opts.CaseInsensitive)] = record{
					rel:  types.RelPath(rel),
					meta: types.MetaFromInfo(target),
				}

			case de.IsDir():
				stack = append(stack, frame{abs: abs, rel: rel})

			case mode.IsRegular():
				var meta *types.FileMeta
				if fi, ierr := de.Info(); ierr == nil {
					meta = types.MetaFromInfo(fi)
				}
				t.files[types.RelPath(rel).Fold(opts.CaseInsensitive)] = record{
					rel:  types.RelPath(rel),
					meta: meta,
				}
			}
			// Sockets, devices and other specials are not mergeable.
		}
	}

	return t, nil
}

// resolveLink returns the cleaned absolute target of the symlink at abs.
// Relative targets are resolved against the link's own directory.
func resolveLink(fsys types.FS, abs, linkDir string) (string, error) {
	target, err := fsys.Readlink(abs)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(linkDir, target)
	}
	return filepath.Clean(target), nil
}
