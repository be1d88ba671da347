package postgresql

import (
	"testing"

	"github.com/leaseflow/leaseflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterClause(t *testing.T) {
	tests := []struct {
		name     string
		filter   persistence.Filter
		initial  []any
		expected string
		args     int
	}{
		{
			name:     "tenant only",
			filter:   persistence.Filter{TenantID: "t1"},
			expected: " AND p.tenant_id = $1",
			args:     1,
		},
		{
			name:     "tenant and properties after existing argument",
			filter:   persistence.Filter{TenantID: "t1", PropertyIDs: []string{"a", "b"}},
			initial:  []any{"renewal"},
			expected: " AND p.tenant_id = $2 AND p.assigned_property_id::text = ANY($3)",
			args:     3,
		},
		{
			name:     "party group",
			filter:   persistence.Filter{TenantID: "t1", PartyGroupID: "g1"},
			expected: " AND p.tenant_id = $1 AND p.party_group_id = $2",
			args:     2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, args := filterClause("p", tt.filter, tt.initial)
			assert.Equal(t, tt.expected, clause)
			require.Len(t, args, tt.args)
			assert.Equal(t, "t1", args[len(tt.initial)])
		})
	}
}

func TestQualify(t *testing.T) {
	columns := qualify("alwd", []string{"id", "COALESCE(%s.external_lease_id, '')"})

	assert.Equal(t, "alwd.id\n\t\t  , COALESCE(alwd.external_lease_id, '')", columns)
}

func TestDateFragments(t *testing.T) {
	assert.Equal(t,
		"((alwd.lease_data->>'leaseEndDate')::timestamptz AT TIME ZONE prop.timezone)::date",
		leaseDataDate("leaseEndDate"))
	assert.Equal(t,
		"((alwd.metadata->>'vacateDate')::timestamptz AT TIME ZONE prop.timezone)::date",
		metadataDate("vacateDate"))
}
