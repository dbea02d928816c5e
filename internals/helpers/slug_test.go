package helper

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestGenerateSlug(t *testing.T) {
	cases := map[string]string{
		"Kelas 5A / Pagi": "kelas-5a-pagi",
		"  SPP   Juli  ":  "spp-juli",
		"--a--b--":        "a-b",
		"!!!":             "",
		"Tahfidz Ula (A)": "tahfidz-ula-a",
	}
	for in, want := range cases {
		assert.Equal(t, want, GenerateSlug(in), in)
	}
}

type slugRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SchoolID  uuid.UUID `gorm:"type:uuid"`
	Slug      string
	DeletedAt gorm.DeletedAt
}

func TestGenerateUniqueSlug(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&slugRow{}))

	school, other := uuid.New(), uuid.New()
	sc := SlugScope{
		Table:            "slug_rows",
		SlugColumn:       "slug",
		SoftDeleteColumn: "deleted_at",
		Filters:          map[string]any{"school_id": school},
		DefaultBase:      "kelas",
	}
	insert := func(sid uuid.UUID, slug string) {
		require.NoError(t, db.Create(&slugRow{ID: uuid.New(), SchoolID: sid, Slug: slug}).Error)
	}

	got, err := GenerateUniqueSlug(db, sc, "Kelas 5A")
	require.NoError(t, err)
	assert.Equal(t, "kelas-5a", got)

	insert(school, "kelas-5a")
	insert(school, "Kelas-5A-2")
	insert(other, "kelas-5a-3")

	got, err = GenerateUniqueSlug(db, sc, "Kelas 5A")
	require.NoError(t, err)
	assert.Equal(t, "kelas-5a-3", got, "case-insensitive, tenant lain tidak dihitung")

	got, err = GenerateUniqueSlug(db, sc, "???")
	require.NoError(t, err)
	assert.Equal(t, "kelas", got)

	// soft-deleted tidak dihitung
	require.NoError(t, db.Where("slug = ?", "kelas-5a").Delete(&slugRow{}).Error)
	got, err = GenerateUniqueSlug(db, sc, "kelas 5a")
	require.NoError(t, err)
	assert.Equal(t, "kelas-5a", got)

	_, err = GenerateUniqueSlug(db, SlugScope{}, "x")
	assert.Error(t, err)
}
