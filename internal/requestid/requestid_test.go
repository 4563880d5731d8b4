package requestid

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	valid := uuid.New().String()
	assert.Equal(t, valid, Sanitize(valid))

	got := Sanitize("not-an-id")
	assert.NotEqual(t, "not-an-id", got)
	_, err := uuid.Parse(got)
	assert.NoError(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", FromContext(ctx))

	ctx = WithID(ctx, "abc")
	assert.Equal(t, "abc", FromContext(ctx))

	entry := Entry(ctx, logrus.New())
	assert.Equal(t, "abc", entry.Data["request_id"])

	_, ok := Entry(context.Background(), logrus.New()).Data["request_id"]
	assert.False(t, ok)
}
