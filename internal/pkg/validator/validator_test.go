package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEmpty(t *testing.T) {
	t.Parallel()
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty("   "))
	assert.True(t, IsEmpty("\t\n"))
	assert.False(t, IsEmpty("x"))
	assert.False(t, IsEmpty(" x "))
}

func TestIsValidUUID(t *testing.T) {
	t.Parallel()
	assert.True(t, IsValidUUID("49d6f0e5-2dc8-4f35-8e97-1f29a95c20b1"))
	assert.True(t, IsValidUUID("49D6F0E5-2DC8-4F35-8E97-1F29A95C20B1"))
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID(""))
	assert.False(t, IsValidUUID("49d6f0e52dc84f358e971f29a95c20b1"))
}

func TestIsInSlice(t *testing.T) {
	t.Parallel()
	statuses := []string{"active", "pending"}
	assert.True(t, IsInSlice("active", statuses))
	assert.False(t, IsInSlice("suspended", statuses))
	assert.False(t, IsInSlice("active", nil))
}

func TestIsValidDateTime(t *testing.T) {
	t.Parallel()
	_, ok := IsValidDateTime("2026-03-10T09:00:00Z")
	assert.True(t, ok)
	_, ok = IsValidDateTime("2026-03-10T09:00:00+07:00")
	assert.True(t, ok)
	_, ok = IsValidDateTime("2026-03-10")
	assert.False(t, ok)
}

func TestIsValidMonthAndYear(t *testing.T) {
	t.Parallel()
	assert.True(t, IsValidMonth(1))
	assert.True(t, IsValidMonth(12))
	assert.False(t, IsValidMonth(0))
	assert.False(t, IsValidMonth(13))

	assert.True(t, IsValidYear(2026))
	assert.False(t, IsValidYear(1999))
	assert.False(t, IsValidYear(2201))
}

func TestValidationErrors(t *testing.T) {
	t.Parallel()
	errs := ValidationErrors{
		{Field: "tenant_id", Message: "tenant_id is required"},
		{Field: "month", Message: "month must be between 1 and 12"},
	}

	assert.Equal(t, "tenant_id: tenant_id is required; month: month must be between 1 and 12", errs.Error())
	assert.Equal(t, map[string]string{
		"tenant_id": "tenant_id is required",
		"month":     "month must be between 1 and 12",
	}, errs.ToMap())
}
