package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetCaller_and_Caller(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, Caller(ctx))

	ctx2 := SetCaller(ctx, "api_key_1")
	assert.Equal(t, "api_key_1", Caller(ctx2))
	assert.Empty(t, Caller(ctx))

	ctx3 := SetCaller(ctx2, "10.0.0.7")
	assert.Equal(t, "10.0.0.7", Caller(ctx3))
	assert.Equal(t, "api_key_1", Caller(ctx2))
}
