package native

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/specialistvlad/layerstage/internal/model"
)

// extensionSuffixes are the filename extensions of compiled extension
// modules across platforms.
var extensionSuffixes = []string{".so", ".pyd", ".dylib"}

var (
	// cpython-312, cpython-312d, cpython-313t
	longCPython = regexp.MustCompile(`^cpython-(\d+[a-z]*)$`)
	// cp312, cp311d
	shortABI = regexp.MustCompile(`^(cp|pp|graalpy)\d+[a-z]*$`)
	// pypy310-pp73
	pypyABI = regexp.MustCompile(`^(pypy\d+)-(pp\d+)$`)
)

// ParseTag splits an ABI/platform tag as embedded in an extension filename
// ("cpython-312-x86_64-linux-gnu", "cp312-win_amd64", "abi3") into a
// PlatformDescriptor. The CPython long form is normalized to the short
// "cp312" spelling so both conventions compare equal.
func ParseTag(tag string) (model.PlatformDescriptor, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return model.PlatformDescriptor{}, fmt.Errorf("empty tag")
	}
	if tag == model.StableABITag {
		return model.PlatformDescriptor{ABITag: model.StableABITag}, nil
	}

	parts := strings.Split(tag, "-")
	switch {
	case len(parts) >= 2 && parts[0] == "cpython":
		m := longCPython.FindStringSubmatch(parts[0] + "-" + parts[1])
		if m == nil {
			return model.PlatformDescriptor{}, fmt.Errorf("malformed CPython tag %q", tag)
		}
		return model.PlatformDescriptor{ABITag: "cp" + m[1], PlatformTag: strings.Join(parts[2:], "-")}, nil
	case len(parts) >= 2 && pypyABI.MatchString(parts[0]+"-"+parts[1]):
		return model.PlatformDescriptor{ABITag: parts[0] + "-" + parts[1], PlatformTag: strings.Join(parts[2:], "-")}, nil
	case shortABI.MatchString(parts[0]):
		return model.PlatformDescriptor{ABITag: parts[0], PlatformTag: strings.Join(parts[1:], "-")}, nil
	default:
		return model.PlatformDescriptor{}, fmt.Errorf("unrecognized ABI tag %q", tag)
	}
}

// ParseExtSuffix parses an interpreter EXT_SUFFIX such as
// ".cpython-311-x86_64-linux-gnu.so" into a PlatformDescriptor.
func ParseExtSuffix(suffix string) (model.PlatformDescriptor, error) {
	s := strings.TrimPrefix(strings.TrimSpace(suffix), ".")
	ext := path.Ext(s)
	if !isExtensionSuffix(ext) {
		return model.PlatformDescriptor{}, fmt.Errorf("EXT_SUFFIX %q has no native library extension", suffix)
	}
	return ParseTag(strings.TrimSuffix(s, ext))
}

// parseFilename extracts the tag from "<stem>.<tag>.<ext>". ok is false for
// files that do not follow the extension module naming convention.
func parseFilename(name string) (model.PlatformDescriptor, bool) {
	base := path.Base(name)
	ext := path.Ext(base)
	if !isExtensionSuffix(ext) {
		return model.PlatformDescriptor{}, false
	}
	rest := strings.TrimSuffix(base, ext)
	i := strings.IndexByte(rest, '.')
	if i <= 0 || i == len(rest)-1 {
		return model.PlatformDescriptor{}, false
	}
	d, err := ParseTag(rest[i+1:])
	if err != nil {
		return model.PlatformDescriptor{}, false
	}
	return d, true
}

// Matches reports whether an artifact built for got runs on target. Stable
// ABI builds carry no platform and match any CPython target.
func Matches(got, target model.PlatformDescriptor) bool {
	if got.ABITag == model.StableABITag {
		return strings.HasPrefix(target.ABITag, "cp")
	}
	return got == target
}

// MissingLibc reports whether d names a Linux platform without the libc
// suffix ("x86_64-linux" rather than "x86_64-linux-gnu"). CPython writes
// the suffix into every extension filename, so such a target matches none
// of them.
func MissingLibc(d model.PlatformDescriptor) bool {
	return d.PlatformTag == "linux" || strings.HasSuffix(d.PlatformTag, "-linux")
}

func isExtensionSuffix(ext string) bool {
	for _, s := range extensionSuffixes {
		if ext == s {
			return true
		}
	}
	return false
}
