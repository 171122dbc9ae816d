package model

type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleOrganizer UserRole = "ORGANIZER"
	RoleClient    UserRole = "CLIENT"
)

var UserRoles = []UserRole{RoleAdmin, RoleOrganizer, RoleClient}

type Capability string

const (
	CapReserve           Capability = "reserve"
	CapManageOwnEvents   Capability = "events:manage-own"
	CapManageAllEvents   Capability = "events:manage-all"
	CapManageUsers       Capability = "users:manage"
	CapViewAllStatistics Capability = "statistics:view-all"
)

// Each role holds the capabilities of the roles below it.
var roleCapabilities = map[UserRole][]Capability{
	RoleClient:    {CapReserve},
	RoleOrganizer: {CapReserve, CapManageOwnEvents},
	RoleAdmin:     {CapReserve, CapManageOwnEvents, CapManageAllEvents, CapManageUsers, CapViewAllStatistics},
}

func (r UserRole) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

func (r UserRole) Can(c Capability) bool {
	for _, have := range roleCapabilities[r] {
		if have == c {
			return true
		}
	}
	return false
}

func (r UserRole) Capabilities() []Capability {
	caps := roleCapabilities[r]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}
