package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/quizcore/internal/model"
)

func TestEncodeOnlineUsers(t *testing.T) {
	msg, err := Encode(EventOnlineUsers, OnlineUsers([]model.Identity{
		{UserID: "1", Username: "carol"},
		{UserID: "2", Username: "alice"},
	}))
	require.NoError(t, err)

	assert.JSONEq(t, `{"event":"onlineUsers","data":[{"username":"carol"},{"username":"alice"}]}`, string(msg))
}

func TestEncodeEmptySnapshotIsEmptyArray(t *testing.T) {
	msg, err := Encode(EventOnlineUsers, OnlineUsers(nil))
	require.NoError(t, err)

	assert.JSONEq(t, `{"event":"onlineUsers","data":[]}`, string(msg))
}

func TestDecode(t *testing.T) {
	env, err := Decode([]byte(`{"event":"getOnlineUsers"}`))
	require.NoError(t, err)
	assert.Equal(t, EventGetOnlineUsers, env.Event)
	assert.Empty(t, env.Data)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestReasonCloseCodes(t *testing.T) {
	assert.Equal(t, 4001, ReasonAuthMissing.CloseCode())
	assert.Equal(t, 4003, ReasonAuthInvalid.CloseCode())
	assert.Equal(t, 4009, ReasonSessionSuperseded.CloseCode())
	assert.Equal(t, 1011, ReasonInternalError.CloseCode())
	assert.NotEmpty(t, ReasonSessionSuperseded.Message())
}
