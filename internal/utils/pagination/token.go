package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano // Use a precise time format

// DefaultLimit applies when the caller does not ask for a page size.
const DefaultLimit = 20

// Cursor points at the last ledger row of a page. Rows are ordered by
// (created_at DESC, record_id DESC) so the pair is unique and stable.
type Cursor struct {
	CreatedAt time.Time
	RecordID  string
}

// EncodeCursor creates a base64 encoded token from a cursor.
func EncodeCursor(c Cursor) string {
	tokenStr := fmt.Sprintf("%s|%s", c.CreatedAt.UTC().Format(timeFormat), c.RecordID)
	return base64.URLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeCursor parses a token produced by EncodeCursor.
func DecodeCursor(token string) (Cursor, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return Cursor{}, fmt.Errorf("invalid pagination token format (split)")
	}

	createdAt, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid pagination token format (created_at parse): %w", err)
	}

	return Cursor{CreatedAt: createdAt, RecordID: parts[1]}, nil
}

// After reports whether a row sorts strictly after the cursor in (created_at DESC, record_id DESC) order.
func (c Cursor) After(createdAt time.Time, recordID string) bool {
	if createdAt.Equal(c.CreatedAt) {
		return recordID < c.RecordID
	}
	return createdAt.Before(c.CreatedAt)
}

// NormalizeLimit clamps a requested page size.
func NormalizeLimit(limit, max int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}
