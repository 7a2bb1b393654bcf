package tenancy

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleTenantResolver(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/documents", nil)

	tc, err := SingleTenantResolver{}.Resolve(r)
	require.NoError(t, err)
	assert.Equal(t, "default", tc.TenantID)
}

func TestHeaderTenantResolver(t *testing.T) {
	t.Run("query param", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/documents?tenant=acme", nil)
		tc, err := HeaderTenantResolver{}.Resolve(r)
		require.NoError(t, err)
		assert.Equal(t, "acme", tc.TenantID)
	})

	t.Run("header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/documents", nil)
		r.Header.Set(TenantHeader, "globex")
		tc, err := HeaderTenantResolver{}.Resolve(r)
		require.NoError(t, err)
		assert.Equal(t, "globex", tc.TenantID)
	})

	t.Run("query param wins over header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/documents?tenant=acme", nil)
		r.Header.Set(TenantHeader, "globex")
		tc, err := HeaderTenantResolver{}.Resolve(r)
		require.NoError(t, err)
		assert.Equal(t, "acme", tc.TenantID)
	})

	t.Run("missing tenant is an error", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/documents", nil)
		_, err := HeaderTenantResolver{}.Resolve(r)
		assert.Error(t, err)
	})
}

func TestValidateTenantID(t *testing.T) {
	valid := []string{
		"default",
		"acme",
		"acme-chemicals",
		"t1",
		"a",
		"123",
		"a1b2-c3",
		strings.Repeat("a", 64),
	}
	for _, id := range valid {
		assert.NoError(t, validateTenantID(id), "expected %q to be valid", id)
	}

	invalid := []string{
		"",
		"Acme",
		"acme_chemicals",
		"-acme",
		"acme-",
		"acme chemicals",
		"acme/other",
		strings.Repeat("a", 65),
	}
	for _, id := range invalid {
		assert.Error(t, validateTenantID(id), "expected %q to be invalid", id)
	}
}
