package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_ReturnsNonEmpty(t *testing.T) {
	var p Pool
	for i := 0; i < 20; i++ {
		assert.NotEmpty(t, p.Random())
	}
}

func TestNew(t *testing.T) {
	assert.IsType(t, Pool{}, New(""))

	src := New("browseq/1.0")
	assert.Equal(t, Fixed("browseq/1.0"), src)
	assert.Equal(t, "browseq/1.0", src.Random())
}
