package view

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateResponse(t *testing.T) {
	t.Run("success drops the request", func(t *testing.T) {
		resp := CreateResponse[any]("ok", nil, map[string]string{"a": "b"}, "")
		assert.Equal(t, "ok", resp.Data)
		assert.Empty(t, resp.Error)
		assert.Nil(t, resp.Request)
	})

	t.Run("error keeps the request", func(t *testing.T) {
		req := map[string]string{"chain": "solana"}
		resp := CreateResponse[any](nil, errors.New("unsupported chain"), req, "invalid request")
		assert.Nil(t, resp.Data)
		assert.Equal(t, "unsupported chain", resp.Error)
		assert.Equal(t, "invalid request", resp.Message)
		assert.Equal(t, req, resp.Request)
	})
}
