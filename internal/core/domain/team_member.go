package domain

// TeamMemberStatus is the state of an invitation to join a business.
type TeamMemberStatus string

const (
	TeamMemberInvited  TeamMemberStatus = "invited"
	TeamMemberAccepted TeamMemberStatus = "accepted"
	TeamMemberRevoked  TeamMemberStatus = "revoked"
)

// TeamMember links a user to a business they work for.
type TeamMember struct {
	ID         string
	UserID     string
	BusinessID string
	Role       string
	Status     TeamMemberStatus
}

// IsAccepted reports whether the membership grants access to the business.
func (m *TeamMember) IsAccepted() bool {
	return m != nil && m.Status == TeamMemberAccepted
}
