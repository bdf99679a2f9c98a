package data

import (
	"strconv"
	"strings"
	"time"

	"github.com/mirrorpack/mirrorpack/internal/errors"
)

// ErrInvalidMetadata is returned by ParseMetadata for lines that are not in
// the nine field format.
var ErrInvalidMetadata = errors.New("invalid metadata")

// metadataFields is the number of colon separated fields in the text form.
const metadataFields = 9

// Metadata describes a single entry of a backup. Which fields are meaningful
// depends on Kind: LinkTarget is only set for symlinks, DevMajor and DevMinor
// only for devices.
type Metadata struct {
	Kind       Kind
	Mode       uint32 // st_mode as read from the filesystem, including type bits
	ModTime    int64  // seconds since the epoch
	UID        uint32
	GID        uint32
	LinkTarget string
	DevMajor   uint32
	DevMinor   uint32
}

// Perm returns the permission bits of Mode, including setuid, setgid and
// sticky.
func (m Metadata) Perm() uint32 {
	return m.Mode & 07777
}

// Time returns the modification time.
func (m Metadata) Time() time.Time {
	return time.Unix(m.ModTime, 0)
}

// Serialize returns the text form used in the repository index:
//
//	mode:mtime:uid:gid:kind:dev_major:dev_minor:is_symlink:symlink_target
//
// The symlink target is last and may itself contain colons.
func (m Metadata) Serialize() string {
	isSymlink := "0"
	if m.Kind == KindSymlink {
		isSymlink = "1"
	}

	var sb strings.Builder
	sb.Grow(48 + len(m.LinkTarget))
	for _, s := range []string{
		strconv.FormatUint(uint64(m.Mode), 10),
		strconv.FormatInt(m.ModTime, 10),
		strconv.FormatUint(uint64(m.UID), 10),
		strconv.FormatUint(uint64(m.GID), 10),
		strconv.FormatUint(uint64(m.Kind), 10),
		strconv.FormatUint(uint64(m.DevMajor), 10),
		strconv.FormatUint(uint64(m.DevMinor), 10),
		isSymlink,
	} {
		sb.WriteString(s)
		sb.WriteByte(':')
	}
	sb.WriteString(m.LinkTarget)
	return sb.String()
}

func (m Metadata) String() string {
	return m.Serialize()
}

// ParseMetadata parses the text form written by Serialize. Lines with fewer
// than nine fields, non-numeric values, unknown kinds or a symlink flag that
// disagrees with the kind are rejected.
func ParseMetadata(s string) (Metadata, error) {
	fields := strings.SplitN(s, ":", metadataFields)
	if len(fields) < metadataFields {
		return Metadata{}, errors.Wrapf(ErrInvalidMetadata, "expected %d fields, got %d", metadataFields, len(fields))
	}

	var m Metadata
	var err error
	parseUint32 := func(name, v string) uint32 {
		if err != nil {
			return 0
		}
		var n uint64
		n, err = strconv.ParseUint(v, 10, 32)
		if err != nil {
			err = errors.Wrapf(ErrInvalidMetadata, "field %s: %v", name, err)
		}
		return uint32(n)
	}

	m.Mode = parseUint32("mode", fields[0])
	if err == nil {
		m.ModTime, err = strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			err = errors.Wrapf(ErrInvalidMetadata, "field mtime: %v", err)
		}
	}
	m.UID = parseUint32("uid", fields[2])
	m.GID = parseUint32("gid", fields[3])
	kind := parseUint32("kind", fields[4])
	m.DevMajor = parseUint32("dev_major", fields[5])
	m.DevMinor = parseUint32("dev_minor", fields[6])
	if err != nil {
		return Metadata{}, err
	}

	m.Kind = Kind(kind)
	if kind >= uint32(numKinds) {
		return Metadata{}, errors.Wrapf(ErrInvalidMetadata, "unknown kind code %d", kind)
	}

	var isSymlink bool
	switch fields[7] {
	case "0":
	case "1":
		isSymlink = true
	default:
		return Metadata{}, errors.Wrapf(ErrInvalidMetadata, "invalid symlink flag %q", fields[7])
	}
	if isSymlink != (m.Kind == KindSymlink) {
		return Metadata{}, errors.Wrapf(ErrInvalidMetadata, "symlink flag %v does not match kind %v", isSymlink, m.Kind)
	}

	m.LinkTarget = fields[8]
	return m, nil
}
