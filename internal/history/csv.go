package history

import (
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-waste-portal.git/internal/upstream"
)

const (
	csvHeader   = "User Name,User Role,Product Name,Product Subcategory,Quantity,SKU,Image,Date & Time"
	missing     = "N/A"
	localLayout = "1/2/2006, 3:04:05 PM"
)

// EncodeCSV renders the export file: the header, then one row per item with
// every field quoted and embedded quotes doubled.
func EncodeCSV(items []upstream.HistoryItem, loc *time.Location) []byte {
	var b strings.Builder
	b.WriteString(csvHeader)
	for _, it := range items {
		b.WriteByte('\n')
		for i, f := range csvFields(it, loc) {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(f, `"`, `""`))
			b.WriteByte('"')
		}
	}
	return []byte(b.String())
}

func csvFields(it upstream.HistoryItem, loc *time.Location) []string {
	var u upstream.HistoryUser
	if it.User != nil {
		u = *it.User
	}
	var p upstream.HistoryProduct
	if it.Product != nil {
		p = *it.Product
	}
	qty := missing
	if it.Quantity != 0 {
		qty = strconv.FormatFloat(float64(it.Quantity), 'f', -1, 64)
	}
	return []string{
		orNA(u.Name),
		orNA(u.Role),
		orNA(p.Name),
		orNA(p.Subcategory),
		qty,
		orNA(p.SKU),
		orNA(p.Image),
		localTime(it.DateTime, loc),
	}
}

func orNA(s string) string {
	if s == "" {
		return missing
	}
	return s
}

// localTime formats an RFC 3339 timestamp for display; anything unparsable is
// passed through as is.
func localTime(s string, loc *time.Location) string {
	if s == "" {
		return missing
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(localLayout)
}
