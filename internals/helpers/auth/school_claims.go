// file: internals/helpers/auth/school_claims.go
package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

/* ============================================
   Locals Keys (diisi middleware AuthJWT)
   ============================================ */

const (
	LocUserID         = "user_id"          // string UUID
	LocRolesGlobal    = "roles_global"     // []string
	LocSchoolRoles    = "school_roles"     // []SchoolRolesEntry
	LocActiveSchoolID = "active_school_id" // string UUID
)

type SchoolRolesEntry struct {
	SchoolID uuid.UUID `json:"school_id"`
	Roles    []string  `json:"roles"`
}

/* ============================================
   Getter
   ============================================ */

// GetSchoolIDFromToken: school aktif di sesi (claim school_id).
func GetSchoolIDFromToken(c *fiber.Ctx) (uuid.UUID, error) {
	s, _ := c.Locals(LocActiveSchoolID).(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "school_id tidak ditemukan di token")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Format school_id tidak valid di token")
	}
	return id, nil
}

// GetUserIDFromToken: nil kalau token tidak membawa user id (mis. token service).
func GetUserIDFromToken(c *fiber.Ctx) *uuid.UUID {
	s, _ := c.Locals(LocUserID).(string)
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return nil
	}
	return &id
}

// HasSchoolRole: true jika user punya salah satu role di school tsb
// (atau role global "owner").
func HasSchoolRole(c *fiber.Ctx, schoolID uuid.UUID, wanted ...string) bool {
	want := map[string]struct{}{}
	for _, w := range wanted {
		want[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}

	if rg, ok := c.Locals(LocRolesGlobal).([]string); ok {
		for _, r := range rg {
			if strings.EqualFold(strings.TrimSpace(r), "owner") {
				return true
			}
		}
	}

	entries, _ := c.Locals(LocSchoolRoles).([]SchoolRolesEntry)
	for _, e := range entries {
		if e.SchoolID != schoolID {
			continue
		}
		for _, r := range e.Roles {
			if _, ok := want[strings.ToLower(strings.TrimSpace(r))]; ok {
				return true
			}
		}
	}
	return false
}
