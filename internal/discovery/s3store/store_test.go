package s3store

import (
	"errors"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ceinfra/cebg/internal/env"
	"github.com/stretchr/testify/assert"
)

func TestArtifactKey(t *testing.T) {
	s := &Store{bucket: "compiler-artifacts", prefix: "dist/discovery"}
	assert.Equal(t, "dist/discovery/prod/gh-123", s.artifactKey(env.Prod, "gh-123"))
	assert.Equal(t, "dist/discovery/staging/gh-123", s.artifactKey(env.Staging, "gh-123"))
	assert.Equal(t, "dist/discovery/beta/gh-9", s.artifactKey(env.Beta, "gh-9"))

	noPrefix := &Store{bucket: "b"}
	assert.Equal(t, "prod/gh-123", noPrefix.artifactKey(env.Prod, "gh-123"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&s3types.NotFound{}))
	assert.True(t, isNotFound(&s3types.NoSuchKey{}))
	assert.False(t, isNotFound(errors.New("access denied")))
	assert.False(t, isNotFound(nil))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"conn reset", errors.New("read tcp: connection reset by peer"), true},
		{"io timeout", errors.New("dial tcp 10.0.0.1:443: i/o timeout"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"plain failure", errors.New("no such host resolution policy"), false},
		{"not found is not transient", &s3types.NotFound{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}
