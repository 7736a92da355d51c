package enums

// MemberStatus is the loyalty tier derived from a user's lifetime spend. It is
// never stored.
type MemberStatus string

const (
	MemberStatusBronze   MemberStatus = "Bronze"
	MemberStatusSilver   MemberStatus = "Silver"
	MemberStatusGold     MemberStatus = "Gold"
	MemberStatusPlatinum MemberStatus = "Platinum"
)

// String implements fmt.Stringer.
func (m MemberStatus) String() string {
	return string(m)
}
