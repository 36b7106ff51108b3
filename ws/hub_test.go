package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(connID, userID, username string, channels ...string) *Client {
	return &Client{
		send:     make(chan []byte, 16),
		connID:   connID,
		userID:   userID,
		username: username,
		channels: channels,
	}
}

func drain(t *testing.T, c *Client) [][]byte {
	t.Helper()
	var out [][]byte
	for {
		select {
		case data := <-c.send:
			out = append(out, data)
		default:
			return out
		}
	}
}

func TestChannelNaming(t *testing.T) {
	assert.Equal(t, "room:general", RoomChannel("  General "))
	assert.Equal(t, "user:u-1", UserChannel("u-1"))
}

func TestHubMembershipAndPresence(t *testing.T) {
	h := NewHub()

	anon := testClient("c1", "", "", RoomChannel("general"))
	auth := testClient("c2", "u-2", "bob", RoomChannel("general"), UserChannel("u-2"))

	h.addClient(anon)
	h.addClient(auth)

	members := h.ListMembers(RoomChannel("general"))
	assert.ElementsMatch(t, []string{"c1", "c2"}, members)
	assert.Len(t, h.ListMembers(UserChannel("u-2")), 1)
	assert.Empty(t, h.ListMembers(RoomChannel("empty-room")), "presence of an empty channel is zero, never negative")

	h.removeClient(auth)
	assert.Equal(t, []string{"c1"}, h.ListMembers(RoomChannel("general")))
	assert.Empty(t, h.ListMembers(UserChannel("u-2")))
}

func TestHubFanOutReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	a := testClient("c1", "", "", RoomChannel("general"))
	b := testClient("c2", "u-2", "bob", RoomChannel("general"), UserChannel("u-2"))
	other := testClient("c3", "", "", RoomChannel("random"))
	h.addClient(a)
	h.addClient(b)
	h.addClient(other)
	drain(t, a)
	drain(t, b)
	drain(t, other)

	h.fanOut(RoomChannel("general"), []byte(`{"content":"hi"}`))

	assert.Len(t, drain(t, a), 1)
	assert.Len(t, drain(t, b), 1)
	assert.Empty(t, drain(t, other), "other rooms must not receive the publish")
}

func TestHubUserChannelIsolation(t *testing.T) {
	h := NewHub()
	sender := testClient("c1", "u-1", "adm", RoomChannel("x"), UserChannel("u-1"))
	recipient := testClient("c2", "u-2", "bob", RoomChannel("x"), UserChannel("u-2"))
	bystander := testClient("c3", "u-3", "eve", RoomChannel("x"), UserChannel("u-3"))
	h.addClient(sender)
	h.addClient(recipient)
	h.addClient(bystander)
	drain(t, sender)
	drain(t, recipient)
	drain(t, bystander)

	payload := []byte(`{"type":"dm","content":"secret"}`)
	h.fanOut(UserChannel("u-1"), payload)
	h.fanOut(UserChannel("u-2"), payload)

	assert.Len(t, drain(t, sender), 1)
	assert.Len(t, drain(t, recipient), 1)
	assert.Empty(t, drain(t, bystander), "uninvolved room subscriber must not see the dm")
}

func TestHubDisconnectNotifiesRemainingRoomMembers(t *testing.T) {
	h := NewHub()
	leaver := testClient("c1", "u-1", "alice", RoomChannel("general"), RoomChannel("ops"), UserChannel("u-1"))
	stayerGeneral := testClient("c2", "", "", RoomChannel("general"))
	stayerOps := testClient("c3", "u-3", "bob", RoomChannel("ops"), UserChannel("u-3"))
	h.addClient(leaver)
	h.addClient(stayerGeneral)
	h.addClient(stayerOps)
	drain(t, leaver)
	drain(t, stayerGeneral)
	drain(t, stayerOps)

	h.removeClient(leaver)

	for name, c := range map[string]*Client{"general": stayerGeneral, "ops": stayerOps} {
		frames := drain(t, c)
		require.Len(t, frames, 1, "remaining member of %s gets one notification", name)
		var evt systemEvent
		require.NoError(t, json.Unmarshal(frames[0], &evt))
		assert.Equal(t, "system", evt.Type)
		assert.Equal(t, name, evt.Room)
		assert.Contains(t, evt.Message, "alice left")
	}
}

func TestHubJoinNotifiesExistingMembersOnly(t *testing.T) {
	h := NewHub()
	first := testClient("c1", "", "", RoomChannel("general"))
	h.addClient(first)
	require.Empty(t, drain(t, first), "nobody to notify about the first join")

	second := testClient("c2", "u-2", "bob", RoomChannel("general"), UserChannel("u-2"))
	h.addClient(second)

	frames := drain(t, first)
	require.Len(t, frames, 1)
	var evt systemEvent
	require.NoError(t, json.Unmarshal(frames[0], &evt))
	assert.Contains(t, evt.Message, "bob entered")

	assert.Empty(t, drain(t, second), "the joiner is not notified about itself")
}

func TestHubRemoveClientTwiceIsSafe(t *testing.T) {
	h := NewHub()
	c := testClient("c1", "", "", RoomChannel("general"))
	h.addClient(c)

	h.removeClient(c)
	h.removeClient(c) // the send channel must not be closed twice

	assert.Empty(t, h.ListMembers(RoomChannel("general")))
}

func TestHubRunLoopDeliversPublishes(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := testClient("c1", "", "", RoomChannel("general"))
	h.register <- c

	// wait for the registration to land before publishing
	require.Eventually(t, func() bool {
		return len(h.ListMembers(RoomChannel("general"))) == 1
	}, time.Second, 5*time.Millisecond)

	h.Publish(RoomChannel("general"), map[string]string{"content": "hi"})

	select {
	case data := <-c.send:
		assert.Contains(t, string(data), "hi")
	case <-time.After(time.Second):
		t.Fatal("publish was not delivered")
	}
}
