package attr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "run-1")
	a := ExtractCorrelationID(ctx)
	assert.Equal(t, "correlation_id", a.Key)
	assert.Equal(t, "run-1", a.Value.String())

	empty := ExtractCorrelationID(context.Background())
	assert.Equal(t, "", empty.Value.String())
}

func TestError(t *testing.T) {
	assert.Equal(t, "boom", Error(errors.New("boom")).Value.String())
	assert.Equal(t, "", Error(nil).Value.String())
}
