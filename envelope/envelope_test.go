package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_QualifiesKind(t *testing.T) {
	env, err := New("room-1", "u1", "Ann", "#f00", "C4", ActMove, Move{Seat: 1, Target: 3})
	require.NoError(t, err)

	assert.Equal(t, "C4_MOVE", env.Kind)
	assert.Equal(t, "C4", env.Namespace())
	assert.Equal(t, ActMove, env.Action())

	var mv Move
	require.NoError(t, env.DecodePayload(&mv))
	assert.Equal(t, Move{Seat: 1, Target: 3}, mv)
}

func TestSplit_UnderscoredActions(t *testing.T) {
	cases := map[string]struct {
		prefix string
		action Action
	}{
		"C4_STATE_SYNC":     {"C4", ActStateSync},
		"TTT_STATE_REQUEST": {"TTT", ActStateRequest},
		"RPS_SIT":           {"RPS", ActSit},
		"MY_GAME_LEAVE":     {"MY_GAME", ActLeave},
	}
	for kind, want := range cases {
		e := Envelope{Kind: kind}
		assert.Equal(t, want.prefix, e.Namespace(), kind)
		assert.Equal(t, want.action, e.Action(), kind)
	}
}

func TestNew_NilPayload(t *testing.T) {
	env, err := New("room-1", "u1", "", "", "TTT", ActStateRequest, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(env.Payload))
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want error
	}{
		"not json":      {`{`, ErrMalformed},
		"no room":       {`{"actorId":"a","kind":"C4_SIT","payload":{}}`, ErrMalformed},
		"no actor":      {`{"roomId":"r","kind":"C4_SIT","payload":{}}`, ErrMalformed},
		"unknown kind":  {`{"roomId":"r","actorId":"a","kind":"C4_JUMP","payload":{}}`, ErrUnknownAction},
		"no namespace":  {`{"roomId":"r","actorId":"a","kind":"SIT","payload":{}}`, ErrUnknownAction},
		"empty payload": {`{"roomId":"r","actorId":"a","kind":"C4_SIT"}`, ErrMalformed},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestEncodeDecode_PreservesPayloadBytes(t *testing.T) {
	env, err := New("r", "a", "Ann", "#fff", "C4", ActStateSync, map[string]any{"turn": 2})
	require.NoError(t, err)

	data, err := Encode(env)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, env.Kind, got.Kind)
	assert.JSONEq(t, string(env.Payload), string(got.Payload))
}

func TestPersist_Validate(t *testing.T) {
	assert.NoError(t, Persist{RoomID: "r", FullState: json.RawMessage(`{"activeGameId":"connect4"}`)}.Validate())
	assert.ErrorIs(t, Persist{FullState: json.RawMessage(`{}`)}.Validate(), ErrMalformed)
	assert.ErrorIs(t, Persist{RoomID: "r", FullState: json.RawMessage(`{`)}.Validate(), ErrMalformed)
}
