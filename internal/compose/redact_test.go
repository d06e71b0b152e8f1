package compose_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/snapdraft/photoblog-backend/internal/compose"
	"github.com/snapdraft/photoblog-backend/internal/models"
)

func TestRedactPlace_Structured(t *testing.T) {
	place := &models.Place{
		Label:   "123 Main St, Springfield, State",
		City:    "Springfield",
		Region:  "State",
		Country: "USA",
	}

	assert.Equal(t, "123 Main St, Springfield, State", compose.RedactPlace(place, "exact"))
	assert.Equal(t, "Springfield, State, USA", compose.RedactPlace(place, "city"))
	assert.Equal(t, "State, USA", compose.RedactPlace(place, "area"))
}

func TestRedactPlace_LabelOnly(t *testing.T) {
	place := &models.Place{Label: "123 Main St, Springfield, State"}

	assert.Equal(t, "123 Main St, Springfield, State", compose.RedactPlace(place, "exact"))
	assert.Equal(t, "Springfield, State", compose.RedactPlace(place, "city"))
	assert.Equal(t, "State", compose.RedactPlace(place, "area"))
}

func TestRedactPlace_ShortLabel(t *testing.T) {
	place := &models.Place{Label: "Springfield"}

	assert.Equal(t, "Springfield", compose.RedactPlace(place, "city"))
	assert.Equal(t, "Springfield", compose.RedactPlace(place, "area"))
}

func TestRedactPlace_UnknownLevelCoarsens(t *testing.T) {
	place := &models.Place{Label: "123 Main St, Springfield, State"}

	assert.Equal(t, "State", compose.RedactPlace(place, "street"))
}

func TestRedactPlace_Empty(t *testing.T) {
	assert.Equal(t, "", compose.RedactPlace(nil, "exact"))
	assert.Equal(t, "", compose.RedactPlace(&models.Place{}, "area"))
}
