package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDirectMessageStore_InboxHoldsSentAndReceived(t *testing.T) {
	s := NewDirectMessageStore()

	toAlice := msgAt("1", "mallory", 0)
	toAlice.Recipient = "alice"
	fromAlice := msgAt("2", "alice", time.Minute)
	fromAlice.Recipient = "bob"
	unrelated := msgAt("3", "bob", 2*time.Minute)
	unrelated.Recipient = "carol"

	s.Send(toAlice)
	s.Send(fromAlice)
	s.Send(unrelated)

	assert.Equal(t, []string{"2", "1"}, ids(s.InboxFor("alice")))
	assert.Equal(t, []string{"3", "2"}, ids(s.InboxFor("bob")))
	assert.Equal(t, []string{"1"}, ids(s.InboxFor("mallory")))
	assert.Empty(t, s.InboxFor("ghost"))
}

func TestDirectMessageStore_MessageToSelfListedOnce(t *testing.T) {
	s := NewDirectMessageStore()
	note := msgAt("1", "alice", 0)
	note.Recipient = "alice"
	s.Send(note)

	assert.Len(t, s.InboxFor("alice"), 1)
}
