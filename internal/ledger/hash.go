package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// NullToken stands for a NULL column in the canonical form and in CSV exports.
const NullToken = "NULL"

const (
	hashSeparator  = "|"
	hashTimeLayout = "2006-01-02T15:04:05Z"
)

// CanonicalString renders the hashed representation of e. The format is part
// of the ledger contract and must never change for existing entries:
//
//	id|timestamp|actor_id|action|table|record_id|old_values|new_values|source_ip|previous_hash
func CanonicalString(e Entry) string {
	parts := []string{
		strconv.FormatInt(e.ID, 10),
		formatTimestamp(e.Timestamp),
		strconv.FormatInt(e.ActorID, 10),
		e.Action,
		e.Table,
		nullableInt(e.RecordID),
		nullablePayload(e.OldValues),
		nullablePayload(e.NewValues),
		nullableString(e.SourceIP),
		e.PreviousHash,
	}
	return strings.Join(parts, hashSeparator)
}

// ComputeHash returns the lowercase hex SHA-256 digest of e's canonical form.
func ComputeHash(e Entry) string {
	sum := sha256.Sum256([]byte(CanonicalString(e)))
	return hex.EncodeToString(sum[:])
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(hashTimeLayout)
}

func nullableInt(v *int64) string {
	if v == nil {
		return NullToken
	}
	return strconv.FormatInt(*v, 10)
}

func nullableString(v *string) string {
	if v == nil {
		return NullToken
	}
	return *v
}

func nullablePayload(p Payload) string {
	if p.IsNull() {
		return NullToken
	}
	return string(p)
}
