package helper

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gorm.io/gorm"
)

const DefaultSlugMaxLen = 160

// SlugScope: tabel + kolom slug + filter tenant untuk cek keunikan.
type SlugScope struct {
	Table            string
	SlugColumn       string
	SoftDeleteColumn string
	Filters          map[string]any
	MaxLen           int
	// fallback kalau nama kosong setelah dinormalisasi, mis. "kelas"
	DefaultBase string
}

// GenerateSlug: "Kelas 5A / Pagi" → "kelas-5a-pagi"
func GenerateSlug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

func cutSlug(s string, n int) string {
	if n > 0 && len(s) > n {
		s = s[:n]
	}
	return strings.Trim(s, "-")
}

func slugTaken(db *gorm.DB, sc SlugScope, candidate string) (bool, error) {
	q := db.Table(sc.Table).Where(fmt.Sprintf("lower(%s) = lower(?)", sc.SlugColumn), candidate)
	for k, v := range sc.Filters {
		q = q.Where(fmt.Sprintf("%s = ?", k), v)
	}
	if sc.SoftDeleteColumn != "" {
		q = q.Where(fmt.Sprintf("%s IS NULL", sc.SoftDeleteColumn))
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// GenerateUniqueSlug: base, lalu base-2, base-3, ... dalam scope tenant.
func GenerateUniqueSlug(db *gorm.DB, sc SlugScope, base string) (string, error) {
	if sc.Table == "" || sc.SlugColumn == "" {
		return "", errors.New("slug scope: table/slug column required")
	}
	maxLen := sc.MaxLen
	if maxLen <= 0 {
		maxLen = DefaultSlugMaxLen
	}
	base = cutSlug(GenerateSlug(base), maxLen)
	if base == "" {
		base = cutSlug(GenerateSlug(sc.DefaultBase), maxLen)
	}
	if base == "" {
		base = "x"
	}

	for i := 1; i < 1000; i++ {
		candidate := base
		if i > 1 {
			suf := fmt.Sprintf("-%d", i)
			candidate = cutSlug(base, maxLen-len(suf)) + suf
		}
		taken, err := slugTaken(db, sc, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", errors.New("failed to generate unique slug after many attempts")
}
