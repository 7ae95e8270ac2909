package repo

import (
	"fmt"
	"path/filepath"
	"reflect"

	"github.com/vk/datashelf/internal/policy"
)

// Mode is a repository access mode.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
	ModeReadWrite
)

// ParseMode converts the configuration spellings "r", "w" and "rw".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r", "":
		return ModeRead, nil
	case "w":
		return ModeWrite, nil
	case "rw":
		return ModeReadWrite, nil
	}
	return 0, fmt.Errorf("repo: invalid mode %q (want r, w, or rw)", s)
}

// Readable reports whether the mode permits reads.
func (m Mode) Readable() bool { return m == ModeRead || m == ModeReadWrite }

// Writable reports whether the mode permits writes.
func (m Mode) Writable() bool { return m == ModeWrite || m == ModeReadWrite }

func (m Mode) String() string {
	switch m {
	case ModeWrite:
		return "w"
	case ModeReadWrite:
		return "rw"
	default:
		return "r"
	}
}

// Args describes a repository a caller wants opened: its location, the
// access mode, optional tags for input filtering, and a policy overlaid on
// whatever policy the repository itself carries.
type Args struct {
	Root   string
	Mode   Mode
	Tags   []string
	Policy *policy.Policy
}

// Matches reports whether an existing cfg satisfies these args, meaning an
// already-open repository can be reused for them.
func (a Args) Matches(c *Cfg) bool {
	if filepath.Clean(a.Root) != filepath.Clean(c.root) {
		return false
	}
	if a.Policy == nil {
		return true
	}
	return reflect.DeepEqual(a.Policy.Map(), c.policy.Map())
}
