package inventory

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	batchCodeNameRunes = 3
	batchCodeSeqWidth  = 3
	batchCodeFallback  = "LOT"
)

// BatchCodePrefix derives the code prefix for a product's batches received in a
// given year: the first three characters of the trimmed product name
// upper-cased, followed by the four digit year. Inner spaces count as
// characters, so "A Serum" gives "A S".
func BatchCodePrefix(productName string, importedAt time.Time) string {
	runes := make([]rune, 0, batchCodeNameRunes)
	for _, r := range strings.TrimSpace(productName) {
		runes = append(runes, unicode.ToUpper(r))
		if len(runes) == batchCodeNameRunes {
			break
		}
	}
	name := string(runes)
	if name == "" {
		name = batchCodeFallback
	}
	return fmt.Sprintf("%s%04d", name, importedAt.Year())
}

// FormatBatchCode appends a zero padded sequence to prefix
func FormatBatchCode(prefix string, seq int) string {
	return fmt.Sprintf("%s%0*d", prefix, batchCodeSeqWidth, seq)
}

// BatchCodeSequence extracts the sequence number from a code generated with prefix
func BatchCodeSequence(prefix, code string) (int, bool) {
	if !strings.HasPrefix(code, prefix) {
		return 0, false
	}
	seq, err := strconv.Atoi(code[len(prefix):])
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}
