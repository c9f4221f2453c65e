package gazetteer

import (
	"fmt"
	"math"
	"sync"
)

// Places keep country, admin1 and timezone as uint16 codes into these shared
// tables. They are package level because Place methods have no way back to
// their Gazetteer.
var (
	countryCodes *codeTable
	admin1Codes  *codeTable
	timezones    *codeTable
	tablesOnce   sync.Once
)

func initCodeTables() {
	tablesOnce.Do(func() {
		countryCodes = newCodeTable(300)
		admin1Codes = newCodeTable(8192)
		timezones = newCodeTable(512)
	})
}

// codeTable assigns stable uint16 codes to strings. Code 0 is always "".
// Safe for concurrent use.
type codeTable struct {
	mu    sync.RWMutex
	names []string
	codes map[string]uint16
	limit int
}

func newCodeTable(capacity int) *codeTable {
	return &codeTable{
		names: make([]string, 1, capacity),
		codes: map[string]uint16{"": 0},
		limit: math.MaxUint16 + 1,
	}
}

// code returns the code for s, assigning the next free one on first use.
// It panics once the table is full; GeoNames has nowhere near that many
// distinct values per column.
func (t *codeTable) code(s string) uint16 {
	t.mu.RLock()
	c, ok := t.codes[s]
	t.mu.RUnlock()
	if ok {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.codes[s]; ok {
		return c
	}
	if len(t.names) >= t.limit {
		panic(fmt.Sprintf("gazetteer: code table full at %d entries", len(t.names)))
	}
	c = uint16(len(t.names))
	t.names = append(t.names, s)
	t.codes[s] = c
	return c
}

// name returns the string for c, or "" for an unassigned code.
func (t *codeTable) name(c uint16) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(c) < len(t.names) {
		return t.names[c]
	}
	return ""
}
