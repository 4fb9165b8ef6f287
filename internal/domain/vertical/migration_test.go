package vertical

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varejo/backend/internal/domain/shared"
)

func TestMigratorRegisterAndLookup(t *testing.T) {
	m := NewMigrator()

	fn := func(bag PropertyBag) (PropertyBag, error) { return bag, nil }
	require.NoError(t, m.Register("PADARIA", "1.0", "1.1", fn))

	assert.NotNil(t, m.Lookup("PADARIA", "1.0", "1.1"))
	assert.Nil(t, m.Lookup("PADARIA", "1.1", "1.0"))
	assert.Nil(t, m.Lookup("FARMACIA", "1.0", "1.1"))
}

func TestMigratorRejectsDuplicates(t *testing.T) {
	m := NewMigrator()
	fn := func(bag PropertyBag) (PropertyBag, error) { return bag, nil }

	require.NoError(t, m.Register("PADARIA", "1.0", "1.1", fn))
	err := m.Register("PADARIA", "1.0", "1.1", fn)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// same versions for a different vertical are a separate key
	assert.NoError(t, m.Register("FARMACIA", "1.0", "1.1", fn))
}

func TestMigratorRejectsNilFunc(t *testing.T) {
	m := NewMigrator()
	assert.ErrorIs(t, m.Register("PADARIA", "1.0", "1.1", nil), shared.ErrInvalidInput)
}

func TestReportBookkeeping(t *testing.T) {
	r := NewReport("FARMACIA", "1.0", "1.1", 10)
	assert.Equal(t, 10, r.Total)
	assert.False(t, r.PartiallySuccessful())

	r.Migrated = 9
	r.RecordError("rec-7", errors.New("missing shelf_life_hours"))

	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, "missing shelf_life_hours", r.Errors["rec-7"])
	assert.True(t, r.PartiallySuccessful())
}

func TestReportAllFailedIsNotPartial(t *testing.T) {
	r := NewReport("FARMACIA", "1.0", "1.1", 2)
	r.RecordError("a", errors.New("boom"))
	r.RecordError("b", errors.New("boom"))

	assert.Equal(t, 2, r.Failed)
	assert.False(t, r.PartiallySuccessful())
}
