package domain

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Role describes what kind of client holds a connection. It is informational
// and never gates delivery.
type Role string

const (
	RoleWorker Role = "worker"
	RoleOwner  Role = "owner"
)

// RoleFromFlag maps the boolean-like isWorker query flag to a Role.
func RoleFromFlag(flag string) Role {
	flag = strings.TrimSpace(strings.ToLower(flag))
	if flag == "yes" {
		return RoleWorker
	}
	if worker, err := strconv.ParseBool(flag); err == nil && worker {
		return RoleWorker
	}
	return RoleOwner
}

// ConnectionInfo is the immutable identity of one live socket.
type ConnectionInfo struct {
	ID          string
	UserID      string
	BusinessID  string
	Role        Role
	ConnectedAt time.Time
}

// Audience selects which connections a broadcast is delivered to.
// BusinessID and UserIDs narrow the match; ExcludeUserID removes a user
// (all of their devices) from it. An audience with neither a business nor
// a user list matches nothing.
type Audience struct {
	BusinessID    string
	UserIDs       []string
	ExcludeUserID string
}

// BusinessAudience targets every connection scoped to a business.
func BusinessAudience(businessID string) Audience {
	return Audience{BusinessID: businessID}
}

// BusinessPeersAudience targets a business except the given user.
func BusinessPeersAudience(businessID, senderID string) Audience {
	return Audience{BusinessID: businessID, ExcludeUserID: senderID}
}

// UsersAudience targets specific users regardless of business scope.
func UsersAudience(userIDs ...string) Audience {
	return Audience{UserIDs: userIDs}
}

// IsEmpty reports whether the audience can never match.
func (a Audience) IsEmpty() bool {
	return a.BusinessID == "" && len(a.UserIDs) == 0
}

// Matches reports whether a connection belongs to the audience.
func (a Audience) Matches(c ConnectionInfo) bool {
	if a.IsEmpty() {
		return false
	}
	if a.BusinessID != "" && c.BusinessID != a.BusinessID {
		return false
	}
	if len(a.UserIDs) > 0 && !slices.Contains(a.UserIDs, c.UserID) {
		return false
	}
	if a.ExcludeUserID != "" && c.UserID == a.ExcludeUserID {
		return false
	}
	return true
}
