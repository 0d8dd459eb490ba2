package csvstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishi-sahayak/backend/internal/storage/models"
)

func TestProfileStore_LoadMissingFileReturnsEmpty(t *testing.T) {
	store := NewProfileStore(filepath.Join(t.TempDir(), "missing.csv"))

	profiles, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestProfileStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "farmer_profiles.csv")
	store := NewProfileStore(path)

	in := []models.FarmerProfile{
		{Name: "Ravi", Language: "Hindi", Latitude: 26.85, Longitude: 80.95, SoilType: "Alluvial", FarmSizeHa: 2.5},
		{Name: "Anita", Language: "English", Latitude: 12.97, Longitude: 77.59, SoilType: "Red", FarmSizeHa: 1.0},
	}
	require.NoError(t, store.Save(in))

	out, err := store.Load()
	require.NoError(t, err)
	require.Len(t, out, 2)

	// Save sorts case-insensitively by name.
	assert.Equal(t, "Anita", out[0].Name)
	assert.Equal(t, "Ravi", out[1].Name)
	assert.Equal(t, 26.85, out[1].Latitude)
	assert.Equal(t, 80.95, out[1].Longitude)
	assert.Equal(t, "Alluvial", out[1].SoilType)
	assert.Equal(t, 2.5, out[1].FarmSizeHa)
}

func TestProfileStore_SaveDropsEmptyNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farmer_profiles.csv")
	store := NewProfileStore(path)

	require.NoError(t, store.Save([]models.FarmerProfile{
		{Name: "  ", Language: "Hindi"},
		{Name: "Ravi", Language: "Hindi", FarmSizeHa: 2},
	}))

	out, err := store.Load()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Ravi", out[0].Name)
}

func TestProfileStore_LoadBackfillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farmer_profiles.csv")
	raw := "name,language,latitude,longitude,soil_type,farm_size_ha\n" +
		"Ravi,,not-a-number,80.95,,-3\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	out, err := NewProfileStore(path).Load()
	require.NoError(t, err)
	require.Len(t, out, 1)

	p := out[0]
	assert.Equal(t, models.DefaultLanguage, p.Language)
	assert.Equal(t, models.DefaultSoilType, p.SoilType)
	assert.Equal(t, models.DefaultLatitude, p.Latitude)
	assert.Equal(t, 80.95, p.Longitude)
	assert.Equal(t, models.DefaultFarmSize, p.FarmSizeHa)
}

func TestProfileStore_LoadMissingColumnsUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farmer_profiles.csv")
	raw := "name,language\nRavi,Hindi\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	out, err := NewProfileStore(path).Load()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, models.DefaultLatitude, out[0].Latitude)
	assert.Equal(t, models.DefaultLongitude, out[0].Longitude)
	assert.Equal(t, models.DefaultFarmSize, out[0].FarmSizeHa)
	assert.Equal(t, models.DefaultSoilType, out[0].SoilType)
}

func TestProfileStore_LoadMalformedFileReturnsEmptyAndError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farmer_profiles.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,language\n\"unterminated\n"), 0644))

	out, err := NewProfileStore(path).Load()
	assert.Error(t, err)
	assert.Empty(t, out)
}

func TestFindProfile_CaseInsensitiveTrimmedMatch(t *testing.T) {
	profiles := []models.FarmerProfile{
		{Name: "Ravi", Language: "Hindi", FarmSizeHa: 2},
		{Name: "Anita", Language: "English", FarmSizeHa: 1},
	}

	p, found := FindProfile(profiles, "  rAvI ")
	require.True(t, found)
	assert.Equal(t, "Ravi", p.Name)

	_, found = FindProfile(profiles, "Suresh")
	assert.False(t, found)

	_, found = FindProfile(profiles, "   ")
	assert.False(t, found)
}

func TestUpsertProfile_ReplacesCaseInsensitively(t *testing.T) {
	profiles := []models.FarmerProfile{
		{Name: "Ravi", Language: "Hindi", FarmSizeHa: 2},
	}

	profiles = UpsertProfile(profiles, models.FarmerProfile{
		Name: "RAVI", Language: "English", Latitude: 10, Longitude: 20, SoilType: "Clay", FarmSizeHa: 3,
	})
	require.Len(t, profiles, 1)
	assert.Equal(t, "RAVI", profiles[0].Name)
	assert.Equal(t, "English", profiles[0].Language)

	profiles = UpsertProfile(profiles, models.FarmerProfile{Name: "Anita", FarmSizeHa: 1})
	assert.Len(t, profiles, 2)
}

func TestUpsertProfile_EmptyNameIsNoOp(t *testing.T) {
	profiles := []models.FarmerProfile{{Name: "Ravi", FarmSizeHa: 2}}
	out := UpsertProfile(profiles, models.FarmerProfile{Name: "  "})
	assert.Equal(t, profiles, out)
}

func TestUpsertProfile_FarmSizeFloor(t *testing.T) {
	out := UpsertProfile(nil, models.FarmerProfile{Name: "Ravi", FarmSizeHa: 0})
	require.Len(t, out, 1)
	assert.Equal(t, models.DefaultFarmSize, out[0].FarmSizeHa)

	out = UpsertProfile(nil, models.FarmerProfile{Name: "Anita", FarmSizeHa: -1.5})
	require.Len(t, out, 1)
	assert.Equal(t, models.DefaultFarmSize, out[0].FarmSizeHa)
}
