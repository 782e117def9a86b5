// Package metadata stamps diff artifacts with a provenance block and verifies it.
//
// The block is a run of LaTeX comment lines appended to the artifact, so the
// document still compiles and comment-stripping readers never see it.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// TagStart is the start of the metadata block.
	TagStart = "% WIKIEDITS_METADATA_START"
	// TagEnd is the end of the metadata block.
	TagEnd = "% WIKIEDITS_METADATA_END"
)

// Metadata verification errors.
var (
	ErrNoMetadataBlock = errors.New("no metadata block found")
	ErrNoHashFound     = errors.New("no hash found in metadata")
	ErrHashMismatch    = errors.New("hash mismatch")
)

// Metadata describes where an artifact came from.
type Metadata struct {
	Created  time.Time
	DocID    string
	Hash     string
	Source   string // hash of the revision texts the artifact was diffed from
	Depth    int
	OldRevID int64
	NewRevID int64
}

// metadataRegex matches the entire metadata block including tags.
var metadataRegex = regexp.MustCompile(`(?s)\n*% WIKIEDITS_METADATA_START\n(.*?)\n% WIKIEDITS_METADATA_END\n?`)

// Extract removes the metadata block from content and returns both the metadata and the cleaned content.
// The cleaned content is what should be hashed.
func Extract(content string) (*Metadata, string) {
	match := metadataRegex.FindStringSubmatch(content)
	cleanContent := metadataRegex.ReplaceAllString(content, "")
	cleanContent = strings.TrimRight(cleanContent, "\n")

	if len(match) < 2 {
		return nil, cleanContent
	}

	meta := &Metadata{}

	for line := range strings.SplitSeq(match[1], "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "%"))

		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		switch key {
		case "CREATED":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				meta.Created = t
			}
		case "DOC_ID":
			meta.DocID = val
		case "DEPTH":
			meta.Depth, _ = strconv.Atoi(val)
		case "OLD_REVID":
			meta.OldRevID, _ = strconv.ParseInt(val, 10, 64)
		case "NEW_REVID":
			meta.NewRevID, _ = strconv.ParseInt(val, 10, 64)
		case "SOURCE":
			meta.Source = val
		case "HASH":
			meta.Hash = val
		}
	}

	return meta, cleanContent
}

// ContentHash returns the hex SHA-256 of s.
func ContentHash(s string) string {
	sum := sha256.Sum256([]byte(s))

	return hex.EncodeToString(sum[:])
}

// CalculateHash computes the SHA-256 hash of the content (excluding metadata).
func CalculateHash(content string) string {
	_, clean := Extract(content)

	return ContentHash(clean)
}

// Sign appends or replaces the metadata block with a fresh hash.
// A zero Created time is replaced by the current time.
func Sign(content string, meta Metadata) string {
	_, clean := Extract(content)

	if meta.Created.IsZero() {
		meta.Created = time.Now().UTC()
	}

	var b strings.Builder

	b.WriteString(clean)
	b.WriteString("\n\n")
	b.WriteString(TagStart + "\n")
	fmt.Fprintf(&b, "%% DOC_ID: %s\n", meta.DocID)
	fmt.Fprintf(&b, "%% DEPTH: %d\n", meta.Depth)
	fmt.Fprintf(&b, "%% OLD_REVID: %d\n", meta.OldRevID)
	fmt.Fprintf(&b, "%% NEW_REVID: %d\n", meta.NewRevID)
	fmt.Fprintf(&b, "%% CREATED: %s\n", meta.Created.UTC().Format(time.RFC3339))

	if meta.Source != "" {
		fmt.Fprintf(&b, "%% SOURCE: %s\n", meta.Source)
	}

	fmt.Fprintf(&b, "%% HASH: %s\n", ContentHash(clean))
	b.WriteString(TagEnd + "\n")

	return b.String()
}

// Verify checks if the content matches the hash in its metadata.
func Verify(content string) (bool, error) {
	meta, clean := Extract(content)
	if meta == nil {
		return false, ErrNoMetadataBlock
	}

	if meta.Hash == "" {
		return false, ErrNoHashFound
	}

	calculated := ContentHash(clean)
	if calculated != meta.Hash {
		return false, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, meta.Hash, calculated)
	}

	return true, nil
}
