// file: internals/helpers/dbtime/time_helper.go
package dbtime

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Nama locals mengikuti yg di-set di middleware AuthJWT
const (
	LocSchoolTimezone = "school_timezone" // string, misal "Asia/Jakarta"
	LocSchoolLoc      = "school_loc"      // *time.Location
)

// GetSchoolLocation zona waktu sekolah dari token:
// 1) c.Locals("school_loc") yang sudah di-cache
// 2) claim "school_timezone" → LoadLocation
// 3) fallback (zona default server; nil = UTC)
func GetSchoolLocation(c *fiber.Ctx, fallback *time.Location) *time.Location {
	if fallback == nil {
		fallback = time.UTC
	}
	if c == nil {
		return fallback
	}

	if v := c.Locals(LocSchoolLoc); v != nil {
		if loc, ok := v.(*time.Location); ok && loc != nil {
			return loc
		}
	}

	if v := c.Locals(LocSchoolTimezone); v != nil {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			if loc, err := time.LoadLocation(strings.TrimSpace(s)); err == nil {
				// cache ke locals biar next call lebih murah
				c.Locals(LocSchoolLoc, loc)
				return loc
			}
		}
	}
	return fallback
}
