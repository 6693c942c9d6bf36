// Package specs infers structured hardware fields from free-text product
// titles.
package specs

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/navigator/internal/model"
)

// Screen sizes outside this range are treated as noise ("2 in 1").
const (
	minScreenInches = 7.0
	maxScreenInches = 40.0
)

var (
	reScreen = regexp.MustCompile(`(?i)\b(\d{1,2}(?:\.\d)?)\s*(?:"|”|″|′′|''|-?inch(?:es)?\b|in\b)`)

	reRAMExplicit = regexp.MustCompile(`(?i)\b(\d{1,2})\s*gb\s*(?:ddr\d\w*\s*)?ram\b`)
	reRAMBare     = regexp.MustCompile(`(?i)\b(\d{1,2})\s*gb\b`)

	reSSD = regexp.MustCompile(`(?i)\b(4|8|16|32|64|128|256|512|1024|2048)\s*gb\s*(?:pcie\s*)?(?:ssd|nvme|m\.2)\b|\b([12])\s*tb\s*(?:pcie\s*)?(?:ssd|nvme)\b`)
	reHDD = regexp.MustCompile(`(?i)\b(500)\s*gb\s*hdd\b|\b([12])\s*tb\s*hdd\b`)

	reGPU = regexp.MustCompile(`(?i)\b(?:rtx\s*\d{3,4}0|gtx\s*\d{3,4}0|arc\s+\w+|radeon\s+(?:rx\s*)?\w+)\b`)

	reCPUDetail = regexp.MustCompile(`(?i)\b(?:i[3579]-?\d{3,5}[a-z]?\w*|ryzen\s*[3-9]\s*\d{3,5}[a-z]?\w*|r[3579]\s*\d{4}\w*)\b`)
	reCPUFamily = regexp.MustCompile(`(?i)\b(?:intel\s*core\s*i[3579]|i[3579]|ryzen\s*[3-9]|athlon|celeron|pentium|(?:apple\s+)?m[123](?:\s+(?:pro|max))?)\b`)
	reRSeries   = regexp.MustCompile(`^R[3579]\s*\d`)
	reMSeries   = regexp.MustCompile(`^(?:APPLE\s+)?M[123]\b`)

	reOS = regexp.MustCompile(`(?i)\b(?:win(?:dows)?\s*(1[01])|(chrome\s*os)|(ubuntu)|(linux)|(dos))\b`)

	whitespace = regexp.MustCompile(`\s+`)
)

// KnownBrands is checked in order; the first whole-word hit wins.
var KnownBrands = []string{
	"hp", "dell", "lenovo", "asus", "acer", "msi", "apple", "avita", "infinix",
	"lg", "samsung", "xiaomi", "realme", "honor", "nokia", "itel", "tecno",
	"mi", "vaio", "alienware", "victus", "omen", "redmibook",
}

var brandPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(KnownBrands))
	for i, b := range KnownBrands {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(b) + `\b`)
	}
	return out
}()

// Parse infers every field it can from title. Fields it cannot infer are
// left absent.
func Parse(title string) model.Specs {
	t := norm.NFKC.String(title)

	var s model.Specs
	s.ScreenInches = parseScreen(t)

	ssd, ssdSpans := parseStorage(reSSD, t)
	hdd, hddSpans := parseStorage(reHDD, t)
	s.StorageSSDGB = ssd
	s.StorageHDDGB = hdd
	s.RAMGB = parseRAM(t, append(ssdSpans, hddSpans...))

	if m := reGPU.FindString(t); m != "" {
		s.GPU = clean(m)
	}
	s.CPU, s.CPUBrand = parseCPU(t)
	s.OS = parseOS(t)
	s.Brand = parseBrand(t)
	return s
}

// Enrich fills the listing's missing spec fields from its title.
func Enrich(l model.Listing) model.Listing {
	l.Specs = l.Specs.Fill(Parse(l.Title))
	return l
}

func parseScreen(t string) *float64 {
	for _, m := range reScreen.FindAllStringSubmatch(t, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if v >= minScreenInches && v < maxScreenInches {
			return &v
		}
	}
	return nil
}

// parseStorage returns the first matched size in GB plus the spans of all
// matches, so RAM parsing can skip tokens that belong to storage.
func parseStorage(re *regexp.Regexp, t string) (*int, [][]int) {
	idx := re.FindAllStringSubmatchIndex(t, -1)
	if len(idx) == 0 {
		return nil, nil
	}
	spans := make([][]int, 0, len(idx))
	for _, loc := range idx {
		spans = append(spans, loc[:2])
	}

	first := idx[0]
	var gb int
	switch {
	case first[2] >= 0:
		gb, _ = strconv.Atoi(t[first[2]:first[3]])
	case first[4] >= 0:
		tb, _ := strconv.Atoi(t[first[4]:first[5]])
		gb = tb * 1024
	default:
		return nil, spans
	}
	return &gb, spans
}

func parseRAM(t string, storage [][]int) *int {
	if m := reRAMExplicit.FindStringSubmatch(t); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			return &v
		}
	}
	for _, loc := range reRAMBare.FindAllStringSubmatchIndex(t, -1) {
		if overlaps(loc[0], loc[1], storage) {
			continue
		}
		if v, err := strconv.Atoi(t[loc[2]:loc[3]]); err == nil && v > 0 {
			return &v
		}
	}
	return nil
}

func overlaps(start, end int, spans [][]int) bool {
	for _, sp := range spans {
		if start < sp[1] && sp[0] < end {
			return true
		}
	}
	return false
}

func parseCPU(t string) (cpu, brand string) {
	m := reCPUDetail.FindString(t)
	if m == "" {
		m = reCPUFamily.FindString(t)
	}
	if m == "" {
		return "", ""
	}
	cpu = clean(m)
	switch {
	case strings.HasPrefix(cpu, "I") || strings.HasPrefix(cpu, "INTEL"):
		brand = "intel"
	case strings.Contains(cpu, "RYZEN") || strings.Contains(cpu, "RADEON") || strings.Contains(cpu, "ATHLON"):
		brand = "amd"
	case reRSeries.MatchString(cpu):
		brand = "amd"
	case strings.HasPrefix(cpu, "CELERON") || strings.HasPrefix(cpu, "PENTIUM"):
		brand = "intel"
	case reMSeries.MatchString(cpu):
		brand = "apple"
	}
	return cpu, brand
}

func parseOS(t string) string {
	m := reOS.FindStringSubmatch(t)
	if m == nil {
		return ""
	}
	switch {
	case m[1] != "":
		return "windows " + m[1]
	case m[2] != "":
		return "chrome os"
	case m[3] != "":
		return "ubuntu"
	case m[4] != "":
		return "linux"
	default:
		return "dos"
	}
}

func parseBrand(t string) string {
	for i, re := range brandPatterns {
		if re.MatchString(t) {
			return KnownBrands[i]
		}
	}
	fields := strings.Fields(t)
	if len(fields) == 0 {
		return ""
	}
	first := strings.ToLower(fields[0])
	if len([]rune(first)) > 12 {
		return ""
	}
	for _, r := range first {
		if !unicode.IsLetter(r) {
			return ""
		}
	}
	return first
}

func clean(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(strings.ToUpper(s), " "))
}
