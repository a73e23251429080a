package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/medbill-ai/coding-engine/internal/observability"
)

// ErrNoCatalogSource indicates that no catalog source could be read. This is
// the only fatal error in the core: the engine cannot operate without the
// reference catalog.
var ErrNoCatalogSource = errors.New("no catalog source found")

// Catalog owns the loaded code records. Load happens once at startup; after
// that every structure is read-only and safe for concurrent queries.
type Catalog struct {
	logger  *observability.Logger
	sources []string

	mu         sync.Mutex
	loaded     bool
	records    []*CodeRecord
	byCode     map[string]*CodeRecord
	byCodeSlot map[string]*CodeRecord
	byCategory map[Category][]*CodeRecord
	skipped    int
}

// Config holds catalog loading configuration.
type Config struct {
	// Sources are candidate catalog locations, tried in order.
	Sources []string
}

// New creates an unloaded catalog.
func New(logger *observability.Logger, cfg Config) *Catalog {
	return &Catalog{
		logger:  logger.WithComponent("catalog"),
		sources: cfg.Sources,
	}
}

// Load reads the first available catalog source and builds the indexes.
// Repeat calls after the first successful load are no-ops.
func (c *Catalog) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return nil
	}

	for _, source := range c.sources {
		f, err := os.Open(source)
		if err != nil {
			c.logger.Debug().Str("source", source).Err(err).Msg("Catalog source unavailable")
			continue
		}

		err = c.loadLocked(f)
		closeErr := f.Close()
		if err != nil {
			return fmt.Errorf("load catalog from %s: %w", source, err)
		}
		if closeErr != nil {
			c.logger.Warn().Str("source", source).Err(closeErr).Msg("Catalog source close failed")
		}

		c.logger.Info().
			Str("source", source).
			Int("records", len(c.records)).
			Int("skipped", c.skipped).
			Msg("Catalog loaded")
		return nil
	}

	return fmt.Errorf("%w: tried %v", ErrNoCatalogSource, c.sources)
}

// LoadFromReader loads the catalog from r, replacing any previous contents.
// Used by tests and by explicit reloads; indexes are rebuilt from scratch so
// repeated loads never accumulate duplicates.
func (c *Catalog) LoadFromReader(r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(r)
}

func (c *Catalog) loadLocked(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	c.records = nil
	c.byCode = make(map[string]*CodeRecord)
	c.byCodeSlot = make(map[string]*CodeRecord)
	c.byCategory = make(map[Category][]*CodeRecord)
	c.skipped = 0

	rows := assembleRows(string(raw))
	for i, row := range rows {
		if i == 0 {
			continue // header
		}

		rec, ok := c.parseRow(row)
		if !ok {
			c.skipped++
			continue
		}

		c.records = append(c.records, rec)
		if _, exists := c.byCode[rec.Code]; !exists {
			// First occurrence is the bare-code fallback entry.
			c.byCode[rec.Code] = rec
		}
		if rec.TimeOfDay != "" {
			c.byCodeSlot[SlotKey(rec.Code, rec.TimeOfDay)] = rec
		}
		c.byCategory[rec.Category] = append(c.byCategory[rec.Category], rec)
	}

	c.loaded = true
	return nil
}

// parseRow converts one logical row into a record. Rows with an empty code
// or description, or a code not starting with a letter, are rejected.
func (c *Catalog) parseRow(row string) (*CodeRecord, bool) {
	fields := splitFields(row)
	if len(fields) < 2 {
		return nil, false
	}

	code := NormalizeCode(fields[0])
	description := strings.TrimSpace(fields[1])
	if code == "" || description == "" {
		return nil, false
	}
	if code[0] < 'A' || code[0] > 'Z' {
		return nil, false
	}

	var notes string
	if len(fields) > 2 {
		notes = strings.TrimSpace(fields[2])
	}
	var amountRaw string
	if len(fields) > 3 {
		amountRaw = fields[3]
	}

	role := RoleOf(code)
	rec := &CodeRecord{
		Code:        code,
		Description: description,
		UsageNotes:  notes,
		Amount:      parseAmount(amountRaw),
		Category:    CategoryOf(code),
		TimeOfDay:   slotFromNotes(notes),
		Role:        role,
		IsPrimary:   role == RolePrimary,
		IsAddOn:     role == RoleAddOn,
	}
	rec.BundlingRules = extractNoteClauses(notes, "not billable with", "bundled with", "included in")
	rec.Exclusions = extractNoteClauses(notes, "excluded", "do not bill")

	return rec, true
}

// assembleRows reassembles logical rows split across physical lines. A field
// may contain embedded newlines while quoted, so a line only terminates a row
// when the accumulated quote count is even.
func assembleRows(raw string) []string {
	var rows []string
	var buf strings.Builder
	quotes := 0

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
		quotes += strings.Count(line, `"`)

		if quotes%2 == 0 {
			row := buf.String()
			if strings.TrimSpace(row) != "" {
				rows = append(rows, row)
			}
			buf.Reset()
			quotes = 0
		}
	}

	if row := buf.String(); strings.TrimSpace(row) != "" {
		rows = append(rows, row)
	}

	return rows
}

// splitFields splits a logical row on commas, honoring quoted fields and
// doubled-quote escapes.
func splitFields(row string) []string {
	var fields []string
	var buf strings.Builder
	inQuotes := false

	for i := 0; i < len(row); i++ {
		ch := row[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(row) && row[i+1] == '"' {
				buf.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			fields = append(fields, buf.String())
			buf.Reset()
		default:
			buf.WriteByte(ch)
		}
	}
	fields = append(fields, buf.String())

	return fields
}

var amountToken = regexp.MustCompile(`\d+(?:\.\d+)?`)

// parseAmount extracts the first numeric token from a free-form currency
// string. Currency symbols and thousands separators are stripped first; any
// failure yields zero, never an error.
func parseAmount(raw string) decimal.Decimal {
	cleaned := strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(raw)
	token := amountToken.FindString(cleaned)
	if token == "" {
		return decimal.Zero
	}

	amount, err := decimal.NewFromString(token)
	if err != nil || amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// Time-of-day inference over usage notes. First match wins; no match leaves
// the record time-agnostic.
var slotPatterns = []struct {
	re   *regexp.Regexp
	slot TimeSlot
}{
	{regexp.MustCompile(`(?i)\bnight\b|\b0?0:00\s*(?:-|to|–)\s*0?8:00\b|\bafter midnight\b`), SlotNight},
	{regexp.MustCompile(`(?i)\bweekends?\b|\bholidays?\b|\bsaturday\b|\bsunday\b`), SlotWeekend},
	{regexp.MustCompile(`(?i)\bevenings?\b|\b17:00\s*(?:-|to|–)\s*2?4?:?0?0?\b|\bafter 17:00\b|\bafter 5\s*pm\b`), SlotEvening},
	{regexp.MustCompile(`(?i)\b0?8:00\s*(?:-|to|–)\s*17:00\b|\bdaytime\b`), SlotDay},
}

func slotFromNotes(notes string) TimeSlot {
	if notes == "" {
		return ""
	}
	for _, p := range slotPatterns {
		if p.re.MatchString(notes) {
			return p.slot
		}
	}
	return ""
}

// extractNoteClauses pulls sentences mentioning any of the markers out of
// the usage notes.
func extractNoteClauses(notes string, markers ...string) []string {
	if notes == "" {
		return nil
	}

	var clauses []string
	for _, sentence := range strings.Split(notes, ".") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		sentenceLower := strings.ToLower(sentence)
		for _, marker := range markers {
			if strings.Contains(sentenceLower, marker) {
				clauses = append(clauses, sentence)
				break
			}
		}
	}

	return clauses
}

// Get returns the time-agnostic record for a code.
func (c *Catalog) Get(code string) (*CodeRecord, bool) {
	rec, ok := c.byCode[NormalizeCode(code)]
	return rec, ok
}

// GetVariant returns the record for a code in a specific time slot, falling
// back to the bare-code entry when no slotted record exists.
func (c *Catalog) GetVariant(code string, slot TimeSlot) (*CodeRecord, bool) {
	code = NormalizeCode(code)
	if rec, ok := c.byCodeSlot[SlotKey(code, slot)]; ok {
		return rec, true
	}
	rec, ok := c.byCode[code]
	return rec, ok
}

// ByCategory returns all records in a category.
func (c *Catalog) ByCategory(cat Category) []*CodeRecord {
	return c.byCategory[cat]
}

// All returns every loaded record.
func (c *Catalog) All() []*CodeRecord {
	return c.records
}

// Size returns the number of loaded records.
func (c *Catalog) Size() int {
	return len(c.records)
}

// Skipped returns the count of malformed rows dropped during the last load.
func (c *Catalog) Skipped() int {
	return c.skipped
}
