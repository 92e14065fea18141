package chat

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"babelchat/internal/app/user"
)

// PresenceEntry is the registry record of one user.
type PresenceEntry struct {
	Profile  user.Profile
	LastSeen time.Time
	conns    map[string]struct{}
}

// Online is derived from the connection set and never stored.
func (e *PresenceEntry) Online() bool {
	return len(e.conns) > 0
}

// Presence tracks which users hold at least one registered connection.
// It is not safe for concurrent use; the Hub loop is its only owner.
type Presence struct {
	entries map[string]*PresenceEntry
}

func NewPresence() *Presence {
	return &Presence{entries: make(map[string]*PresenceEntry)}
}

// Register adds connID to the user's connection set. firstConn reports the offline to online
// transition; firstSeen reports that the user had never registered before in this process.
func (p *Presence) Register(profile user.Profile, connID string) (firstConn, firstSeen bool) {
	entry, ok := p.entries[profile.ID]
	if !ok {
		entry = &PresenceEntry{conns: make(map[string]struct{})}
		p.entries[profile.ID] = entry
		firstSeen = true
	}

	entry.Profile = profile
	firstConn = !entry.Online()
	entry.conns[connID] = struct{}{}

	return firstConn, firstSeen
}

// Unregister removes connID. wentOffline reports the online to offline transition,
// in which case LastSeen is stamped with now.
func (p *Presence) Unregister(userID, connID string, now time.Time) (entry *PresenceEntry, wentOffline bool) {
	entry, ok := p.entries[userID]
	if !ok {
		return nil, false
	}

	if _, held := entry.conns[connID]; !held {
		return entry, false
	}

	delete(entry.conns, connID)
	if entry.Online() {
		return entry, false
	}

	entry.LastSeen = now
	return entry, true
}

func (p *Presence) IsOnline(userID string) bool {
	entry, ok := p.entries[userID]
	return ok && entry.Online()
}

// ConnectionCount returns the number of registered connections of userID.
func (p *Presence) ConnectionCount(userID string) int {
	if entry, ok := p.entries[userID]; ok {
		return len(entry.conns)
	}
	return 0
}

// Connections returns the connection ids registered for userID.
func (p *Presence) Connections(userID string) []string {
	entry, ok := p.entries[userID]
	if !ok {
		return nil
	}
	return lo.Keys(entry.conns)
}

// OnlineUserIDs returns the ids of online users, sorted.
func (p *Presence) OnlineUserIDs() []string {
	ids := lo.FilterMapToSlice(p.entries, func(id string, e *PresenceEntry) (string, bool) {
		return id, e.Online()
	})
	sort.Strings(ids)
	return ids
}

type typingEntry struct {
	name  string
	since time.Time
}

// TypingSet is the insertion-ordered set of users composing a message.
// It is not safe for concurrent use; the Hub loop is its only owner.
type TypingSet struct {
	order   []string
	entries map[string]typingEntry
}

func NewTypingSet() *TypingSet {
	return &TypingSet{entries: make(map[string]typingEntry)}
}

// Start adds userID or refreshes its timestamp, keeping its original position.
func (t *TypingSet) Start(userID, name string, now time.Time) {
	if _, ok := t.entries[userID]; !ok {
		t.order = append(t.order, userID)
	}
	t.entries[userID] = typingEntry{name: name, since: now}
}

// Stop removes userID and reports whether it was present.
func (t *TypingSet) Stop(userID string) bool {
	if _, ok := t.entries[userID]; !ok {
		return false
	}

	delete(t.entries, userID)
	t.order = lo.Without(t.order, userID)
	return true
}

// Expire removes entries not refreshed since cutoff and returns their user ids.
func (t *TypingSet) Expire(cutoff time.Time) []string {
	stale := lo.Filter(t.order, func(id string, _ int) bool {
		return t.entries[id].since.Before(cutoff)
	})
	for _, id := range stale {
		t.Stop(id)
	}
	return stale
}

// Names returns the display names in the order users started typing.
func (t *TypingSet) Names() TypingUpdate {
	return lo.Map(t.order, func(id string, _ int) string {
		return t.entries[id].name
	})
}

func (t *TypingSet) Len() int {
	return len(t.order)
}
