package models

import (
	"sort"
	"time"
)

// EdgeKind names one side of an account's edge-list record.
type EdgeKind string

const (
	// EdgeFollowing lists the accounts the owner follows.
	EdgeFollowing EdgeKind = "following"
	// EdgeFollowers lists the accounts following the owner.
	EdgeFollowers EdgeKind = "followers"
)

// Edge is one member of one side of an edge-list record.
type Edge struct {
	OwnerID   string    `gorm:"primaryKey;type:varchar(128);column:owner_id"`
	Kind      EdgeKind  `gorm:"primaryKey;type:varchar(16);column:kind"`
	MemberID  string    `gorm:"primaryKey;type:varchar(128);column:member_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for Edge
func (Edge) TableName() string {
	return "edges"
}

// EdgeList is the decoded edge-list record of one account. Both sets are
// sorted and never nil.
type EdgeList struct {
	AccountID string   `json:"account_id"`
	Following []string `json:"following"`
	Followers []string `json:"followers"`

	// followedAt holds when each follower's edge was added.
	followedAt map[string]time.Time
}

// NewEdgeList builds a record from member sets keyed by the time each edge
// was added.
func NewEdgeList(accountID string, following, followers map[string]time.Time) *EdgeList {
	return &EdgeList{
		AccountID:  accountID,
		Following:  sortedKeys(following),
		Followers:  sortedKeys(followers),
		followedAt: followers,
	}
}

// Members returns the member ids for one side of the record.
func (l *EdgeList) Members(kind EdgeKind) []string {
	if l == nil {
		return nil
	}
	if kind == EdgeFollowers {
		return l.Followers
	}
	return l.Following
}

// Has reports whether id is a member of the given side.
func (l *EdgeList) Has(kind EdgeKind, id string) bool {
	members := l.Members(kind)
	i := sort.SearchStrings(members, id)
	return i < len(members) && members[i] == id
}

// FollowersAsOf returns the followers whose edge existed at t. Edges with no
// recorded time count as existing.
func (l *EdgeList) FollowersAsOf(t time.Time) []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.Followers))
	for _, id := range l.Followers {
		if since := l.followedAt[id]; since.IsZero() || !since.After(t) {
			out = append(out, id)
		}
	}
	return out
}

func sortedKeys(set map[string]time.Time) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// EdgeListRecord marks that an account's edge list exists, even when both
// of its sides are empty.
type EdgeListRecord struct {
	AccountID string    `gorm:"primaryKey;type:varchar(128);column:account_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for EdgeListRecord
func (EdgeListRecord) TableName() string {
	return "edge_lists"
}
