package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewClamps(t *testing.T) {
	assert.Equal(t, Query{Page: 1, Limit: 20}, New(0, 0))
	assert.Equal(t, Query{Page: 3, Limit: 100}, New(3, 500))
	assert.Equal(t, Query{Page: 1, Limit: 5}, New(-2, 5))
}

func TestFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=2&size=15", nil)

	q := FromContext(c)
	assert.Equal(t, Query{Page: 2, Limit: 15}, q)
	assert.Equal(t, 15, q.Skip())
}

func TestMeta(t *testing.T) {
	m := New(2, 10).Meta(25)
	assert.Equal(t, int64(25), m.Total)
	assert.Equal(t, 3, m.TotalPage)
	assert.True(t, m.HasNextPage)

	m = New(3, 10).Meta(25)
	assert.False(t, m.HasNextPage)
}
