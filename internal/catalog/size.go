package catalog

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	dimensionSplit = regexp.MustCompile(`\s*[xX×]\s*`)
	feetPattern    = regexp.MustCompile(`(\d+)\s*['’′]`)
	inchPattern    = regexp.MustCompile(`(\d+)\s*(?:"|”|″|'')`)
)

// ConvertSizeToNominal turns `5' 8" x 7' 2"` into "6x7". Five or more extra
// inches round the foot value up. A dimension that cannot be read counts as 0.
func ConvertSizeToNominal(size string) string {
	size = strings.TrimSpace(size)
	if size == "" {
		return ""
	}

	parts := dimensionSplit.Split(size, -1)
	for len(parts) < 2 {
		parts = append(parts, "")
	}

	return strconv.Itoa(nominalFeet(parts[0])) + "x" + strconv.Itoa(nominalFeet(parts[1]))
}

func nominalFeet(dim string) int {
	m := feetPattern.FindStringSubmatch(dim)
	if m == nil {
		return 0
	}
	feet, _ := strconv.Atoi(m[1])

	rest := dim[strings.Index(dim, m[0])+len(m[0]):]
	if im := inchPattern.FindStringSubmatch(rest); im != nil {
		if inches, _ := strconv.Atoi(im[1]); inches >= 5 {
			feet++
		}
	}
	return feet
}

// NominalOption is the "Nominal Size" option value: the nominal size
// followed by the capitalised shapes.
func NominalOption(size string, shapes []string) string {
	parts := []string{}
	if n := ConvertSizeToNominal(size); n != "" {
		parts = append(parts, n)
	}
	for _, s := range shapes {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, capitalize(s))
		}
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[n:])
}
