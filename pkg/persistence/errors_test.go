package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("party error unwraps to sentinel", func(t *testing.T) {
		err := persistence.NewPartyError("GetByID", "party-123", persistence.ErrPartyNotFound)

		assert.True(t, persistence.IsPartyNotFound(err))
		assert.True(t, persistence.IsNotFound(err))
		assert.True(t, errors.Is(err, persistence.ErrPartyNotFound))
		assert.False(t, persistence.IsStructural(err))
	})

	t.Run("party error contains context", func(t *testing.T) {
		err := persistence.NewPartyError("Archive", "party-123", persistence.ErrPartyAlreadyArchived)

		assert.Contains(t, err.Error(), "Archive")
		assert.Contains(t, err.Error(), "party-123")
		assert.Contains(t, err.Error(), "party already archived")
	})

	t.Run("structural errors survive wrapping", func(t *testing.T) {
		err := fmt.Errorf("failed to load settings: %w", persistence.ErrPropertyNotFound)

		assert.True(t, persistence.IsStructural(err))
		assert.True(t, persistence.IsStructural(fmt.Errorf("cycle: %w", persistence.ErrTenantNotFound)))
		assert.False(t, persistence.IsStructural(errors.New("connection reset")))
	})
}

func TestFilter_Scoped(t *testing.T) {
	t.Parallel()

	assert.False(t, persistence.Filter{TenantID: "t1"}.Scoped())
	assert.True(t, persistence.Filter{TenantID: "t1", PropertyIDs: []string{"p1"}}.Scoped())
	assert.True(t, persistence.Filter{TenantID: "t1", PartyGroupID: "g1"}.Scoped())
}
