package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaccard(t *testing.T) {
	t.Run("identical descriptions", func(t *testing.T) {
		assert.Equal(t, 1.0, jaccard("build the login form", "build the login form"))
	})

	t.Run("case and spacing are ignored", func(t *testing.T) {
		assert.Equal(t, 1.0, jaccard("Build  THE login\tform", "build the login form"))
	})

	t.Run("disjoint descriptions", func(t *testing.T) {
		assert.Equal(t, 0.0, jaccard("build the form", "deploy a service"))
	})

	t.Run("partial overlap", func(t *testing.T) {
		// Shared {deploy,the,service,to,production} of 6 distinct tokens.
		got := jaccard("deploy the service to production", "deploy the service to production now")
		assert.InDelta(t, 5.0/6.0, got, 1e-9)
	})

	t.Run("empty sides score zero", func(t *testing.T) {
		assert.Equal(t, 0.0, jaccard("", "anything"))
		assert.Equal(t, 0.0, jaccard("anything", ""))
		assert.Equal(t, 0.0, jaccard("", ""))
	})

	t.Run("duplicate words collapse", func(t *testing.T) {
		assert.Equal(t, 1.0, jaccard("go go go", "go"))
	})
}
