package rawfile

import (
	"strings"
)

// FormatFamily identifies the vendor format of an acquisition file or folder.
type FormatFamily int

const (
	FamilyUnknown FormatFamily = iota
	FamilyWiff                 // Sciex .wiff, requires a .wiff.scan companion
	FamilyWiff2                // Sciex .wiff2, requires a .wiff2.scan companion
	FamilyWiffScan             // companion for .wiff
	FamilyWiff2Scan            // companion for .wiff2
	FamilyThermoRaw            // Thermo .raw, single file
	FamilyBrukerD              // Bruker .d, directory based
)

// String returns the string representation of FormatFamily.
func (f FormatFamily) String() string {
	switch f {
	case FamilyWiff:
		return "wiff"
	case FamilyWiff2:
		return "wiff2"
	case FamilyWiffScan:
		return "wiff.scan"
	case FamilyWiff2Scan:
		return "wiff2.scan"
	case FamilyThermoRaw:
		return "raw"
	case FamilyBrukerD:
		return "d"
	default:
		return "unknown"
	}
}

// formatEntry is one row of the suffix table.
type formatEntry struct {
	suffix    string
	family    FormatFamily
	companion bool // the entry itself is a companion file
	dirOnly   bool // the entry matches directories, not files
}

// formatTable is tested in order. Multi-dot suffixes must come before their
// single-dot prefixes so that a .wiff.scan is never classified as .wiff.
var formatTable = []formatEntry{
	{suffix: ".wiff2.scan", family: FamilyWiff2Scan, companion: true},
	{suffix: ".wiff.scan", family: FamilyWiffScan, companion: true},
	{suffix: ".wiff2", family: FamilyWiff2},
	{suffix: ".wiff", family: FamilyWiff},
	{suffix: ".raw", family: FamilyThermoRaw},
	{suffix: ".d", family: FamilyBrukerD, dirOnly: true},
}

// Resolve classifies a filesystem entry name into a format family. It returns
// false when the name does not match any known vendor format. Matching is
// case-insensitive. Directory entries only match directory-based families, and
// only by suffix equality on the name's trailing component.
func Resolve(name string, isDir bool) (FormatFamily, bool) {
	lower := strings.ToLower(name)
	for _, entry := range formatTable {
		if entry.dirOnly != isDir {
			continue
		}
		if strings.HasSuffix(lower, entry.suffix) {
			return entry.family, true
		}
	}
	return FamilyUnknown, false
}

// Suffix returns the vendor suffix matched by name, or false when name does
// not end in a known suffix. Unlike Resolve it ignores the file/directory
// distinction, which makes it usable against remote listings where no stat
// information exists.
func Suffix(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, entry := range formatTable {
		if strings.HasSuffix(lower, entry.suffix) {
			return entry.suffix, true
		}
	}
	return "", false
}

// Stem returns the acquisition name with its vendor suffix removed. A name
// without a known suffix is returned unchanged.
func Stem(name string) string {
	suffix, ok := Suffix(name)
	if !ok {
		return name
	}
	return name[:len(name)-len(suffix)]
}

// IsCompanion reports whether name is a companion file that must never be
// converted on its own.
func IsCompanion(name string) bool {
	lower := strings.ToLower(name)
	for _, entry := range formatTable {
		if entry.companion && strings.HasSuffix(lower, entry.suffix) {
			return true
		}
	}
	return false
}

// RequiresCompanion reports whether family is a two-part primary format and,
// if so, the suffix its companion file must carry.
func RequiresCompanion(family FormatFamily) (string, bool) {
	switch family {
	case FamilyWiff:
		return ".wiff.scan", true
	case FamilyWiff2:
		return ".wiff2.scan", true
	default:
		return "", false
	}
}
