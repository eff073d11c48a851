package importer

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// dateLayout is one accepted spreadsheet date format.
type dateLayout struct {
	layout string
	noYear bool
	// shortYear layouts read a two-digit year as 20YY.
	shortYear bool
}

var dateLayouts = []dateLayout{
	{layout: types.DateLayout},
	{layout: time.RFC3339},
	{layout: "January 2, 2006"},
	{layout: "Jan 2, 2006"},
	{layout: "January 2 2006"},
	{layout: "Jan 2 2006"},
	{layout: "2 January 2006"},
	{layout: "2 Jan 2006"},
	{layout: "2-Jan-06", shortYear: true},
	{layout: "2-Jan-2006"},
	{layout: "1/2/2006"},
	{layout: "January 2", noYear: true},
	{layout: "Jan 2", noYear: true},
	{layout: "Jan-2", noYear: true},
	{layout: "2 January", noYear: true},
	{layout: "2 Jan", noYear: true},
}

// ParseDate converts a spreadsheet date to YYYY-MM-DD. Dates without a year
// fall in the year of now. Unrecognized input yields "".
func ParseDate(s string, now time.Time) string {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ","))
	if s == "" {
		return ""
	}
	for _, dl := range dateLayouts {
		t, err := time.Parse(dl.layout, s)
		if err != nil {
			continue
		}
		switch {
		case dl.noYear:
			t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		case dl.shortYear:
			t = time.Date(2000+t.Year()%100, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return t.Format(types.DateLayout)
	}
	return ""
}

var currencyStripper = strings.NewReplacer("£", "", "$", "", "€", "", ",", "", " ", "")

// ParsePrice reads a money amount such as "£1,299.50". Invalid or negative
// amounts yield nil.
func ParsePrice(s string) *float64 {
	s = currencyStripper.Replace(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != f {
		return nil
	}
	return &f
}

// imageExts are the extensions accepted from the media column.
var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".heic": true,
}

// mediaBase URL-decodes an exported media reference and returns its file
// name.
func mediaBase(ref string) string {
	ref = strings.TrimSpace(ref)
	if decoded, err := url.PathUnescape(ref); err == nil {
		ref = decoded
	}
	ref = strings.ReplaceAll(ref, `\`, "/")
	base := path.Base(ref)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// FirstImage returns the file name of the first image in a comma separated
// "Files & media" cell, or "" when there is none.
func FirstImage(filesMedia string) string {
	for _, entry := range strings.Split(filesMedia, ",") {
		base := mediaBase(entry)
		if base == "" {
			continue
		}
		if imageExts[strings.ToLower(path.Ext(base))] {
			return base
		}
	}
	return ""
}

var parenthesized = regexp.MustCompile(`\s*\([^)]*\)`)

// ExtractPlantName derives a plant name from an export folder name such as
// "Monstera (kitchen) - updates 1a2b".
func ExtractPlantName(folder string) string {
	name := parenthesized.ReplaceAllString(folder, "")
	if i := strings.Index(name, " -"); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

var updateTypes = map[string]string{
	"water":             types.EventWater,
	"watering":          types.EventWater,
	"new leaf":          "New Leaf",
	"new leaf unfolded": "New Leaf",
	"trim":              "Trim",
	"trimmed":           "Trim",
	"repot":             "Repot",
	"repotted":          "Repot",
	"propagate":         "Propagate",
	"propagated":        "Propagate",
	"pest control":      "Pest control",
	"root rot":          "Root Rot",
	"general update":    types.EventOther,
	"other":             types.EventOther,
}

// MapUpdateType maps an exported update type to a built-in event type.
// Anything unrecognized becomes Other.
func MapUpdateType(s string) string {
	if t, ok := updateTypes[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t
	}
	return types.EventOther
}
