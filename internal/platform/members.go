package platform

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// MembersRefreshInterval is the minimum time between two bulk member fetches.
const MembersRefreshInterval = 30 * time.Minute

// MembersCache holds the members of the managed guild. A bulk fetch happens
// at most once per interval; gateway member events keep it current in between.
type MembersCache struct {
	source  MemberSource
	guildID string

	refresh rate.Sometimes

	mu      sync.RWMutex
	members map[string]*discordgo.Member
}

// NewMembersCache returns an empty cache for guildID.
func NewMembersCache(source MemberSource, guildID string, interval time.Duration) *MembersCache {
	return &MembersCache{
		source:  source,
		guildID: guildID,
		refresh: rate.Sometimes{Interval: interval},
		members: make(map[string]*discordgo.Member),
	}
}

// Refresh fetches all members unless a fetch already happened within the
// interval. Callers racing with a running fetch wait for it and then skip.
func (c *MembersCache) Refresh(ctx context.Context) {
	c.refresh.Do(func() {
		if err := c.load(ctx); err != nil {
			log.Printf("[WARN] Failed to refresh members cache: %v", err)
		}
	})
}

// Load fetches all members unconditionally and replaces the cache content.
// A successful load counts as a refresh, so Refresh skips until the
// interval has passed.
func (c *MembersCache) Load(ctx context.Context) error {
	if err := c.load(ctx); err != nil {
		return err
	}
	c.refresh.Do(func() {})
	return nil
}

func (c *MembersCache) load(ctx context.Context) error {
	members, err := c.source.Members(ctx, c.guildID)
	if err != nil {
		return err
	}

	fresh := make(map[string]*discordgo.Member, len(members))
	for _, m := range members {
		if m.User != nil {
			fresh[m.User.ID] = m
		}
	}

	c.mu.Lock()
	c.members = fresh
	c.mu.Unlock()
	log.Printf("[DEBUG] Members cache holds %d members", len(fresh))
	return nil
}

// Upsert stores or replaces one member.
func (c *MembersCache) Upsert(m *discordgo.Member) {
	if m == nil || m.User == nil {
		return
	}
	c.mu.Lock()
	c.members[m.User.ID] = m
	c.mu.Unlock()
}

// Remove forgets a member.
func (c *MembersCache) Remove(userID string) {
	c.mu.Lock()
	delete(c.members, userID)
	c.mu.Unlock()
}

// Cached returns the cached member, if any.
func (c *MembersCache) Cached(userID string) (*discordgo.Member, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.members[userID]
	return m, ok
}

// Member returns the cached member or fetches it. It satisfies
// usage.MemberResolver.
func (c *MembersCache) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, ok := c.Cached(userID); ok {
		return m, nil
	}
	m, err := c.source.Member(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if guildID == c.guildID {
		c.Upsert(m)
	}
	return m, nil
}

// Snapshot returns the cached members sorted by user ID.
func (c *MembersCache) Snapshot() []*discordgo.Member {
	c.mu.RLock()
	out := make([]*discordgo.Member, 0, len(c.members))
	for _, m := range c.members {
		out = append(out, m)
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b *discordgo.Member) int {
		switch {
		case a.User.ID < b.User.ID:
			return -1
		case a.User.ID > b.User.ID:
			return 1
		}
		return 0
	})
	return out
}

// Len returns the number of cached members.
func (c *MembersCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}
